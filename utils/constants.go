// File: utils/constants.go
package utils

import "time"

// GeoCachePrefix is the prefix used for Redis geocode cache keys.
const GeoCachePrefix = "geo:"

// GeoCacheTTL is the time-to-live for geocode cache entries.
const GeoCacheTTL = 30 * 24 * time.Hour
