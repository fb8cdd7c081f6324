package config

// FirebaseServiceAccountKeyPath points at the service-account JSON used to
// initialize the messaging client.
var FirebaseServiceAccountKeyPath = "serviceAccountKey.json"
