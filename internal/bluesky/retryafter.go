package bluesky

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// retryAfterTime interprets a Retry-After header as either a delta in
// seconds or an HTTP-date, returning the absolute resume time. The second
// return is false when the header is absent or unparseable.
func retryAfterTime(header string, now time.Time) (time.Time, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return time.Time{}, false
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		if seconds < 0 {
			return time.Time{}, false
		}
		return now.Add(time.Duration(seconds) * time.Second), true
	}
	if at, err := http.ParseTime(header); err == nil {
		return at.UTC(), true
	}
	return time.Time{}, false
}
