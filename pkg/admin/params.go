package admin

import (
	"net/url"
	"strconv"
	"time"
)

// maxPerPage caps per_page.
const maxPerPage = 500

// parseTimeParam parses an RFC 3339 query parameter. Missing or malformed
// values yield nil.
func parseTimeParam(q url.Values, key string) *time.Time {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}

// parseBoolParam parses a boolean query parameter, nil when absent.
func parseBoolParam(q url.Values, key string) *bool {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// parseLimit parses per_page, falling back to def.
func parseLimit(q url.Values, def int) int {
	n, err := strconv.Atoi(q.Get("per_page"))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, maxPerPage)
}

// parsePageOffset parses the 1-based page parameter into an offset.
func parsePageOffset(q url.Values, limit int) int {
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		return (n - 1) * limit
	}
	return 0
}
