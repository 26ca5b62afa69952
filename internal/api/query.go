package api

import (
	"net/http"
	"time"
)

// timeRange parses optional from/to query parameters (RFC 3339). Absent
// bounds default to the current week starting at today's midnight UTC.
func timeRange(r *http.Request) (from, to time.Time, err error) {
	now := time.Now().UTC()
	from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to = from.AddDate(0, 0, 7)

	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, err
		}
		to = from.AddDate(0, 0, 7)
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, err
		}
	}
	return from, to, nil
}
