package domain

// IntentCount is how often an intent answered a question. An empty Intent counts fallbacks.
type IntentCount struct {
	Intent string `json:"intent"`
	Count  int64  `json:"count"`
}

// Label returns a printable name for the bucket.
func (c IntentCount) Label() string {
	if c.Intent == "" {
		return "fallback"
	}
	return c.Intent
}
