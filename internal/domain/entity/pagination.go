package entity

import "strings"

// Pagination is the cursor block attached to every list response.
type Pagination struct {
	EndingBefore  string `json:"ending_before"`
	StartingAfter string `json:"starting_after"`
	Limit         int    `json:"limit"`
	Order         string `json:"order"`
	PreviousURI   string `json:"previous_uri"`
	NextURI       string `json:"next_uri"`
}

// Next returns the trimmed next_uri. It is nil-safe so callers can chain off optional blocks.
func (p *Pagination) Next() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.NextURI)
}
