package models

// DeliveryPayload is the queue payload for a notification delivery task.
type DeliveryPayload struct {
	RecordID string `json:"recordId"`
}

// TransferPayload is the queue payload for a payout transfer task.
type TransferPayload struct {
	PayoutID string `json:"payoutId"`
}
