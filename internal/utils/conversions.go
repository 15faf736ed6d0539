package utils

import "time"

// UnixTime converts a JSON-decoded epoch (float seconds) into a time.
func UnixTime(v any) (time.Time, bool) {
	switch n := v.(type) {
	case float64:
		return time.Unix(int64(n), 0), true
	case int64:
		return time.Unix(n, 0), true
	case int:
		return time.Unix(int64(n), 0), true
	}
	return time.Time{}, false
}
