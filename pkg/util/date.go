package util

import "time"

// AlertTimeLayout is the human readable local timestamp used in notifications.
const AlertTimeLayout = "2006-01-02 15:04:05"

// FormatUnixLocal renders unix seconds in the local zone. A non-positive ts
// falls back to now.
func FormatUnixLocal(ts int64, now time.Time) string {
	if ts <= 0 {
		return now.Local().Format(AlertTimeLayout)
	}
	return time.Unix(ts, 0).Local().Format(AlertTimeLayout)
}
