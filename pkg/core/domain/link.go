package domain

import "time"

// Owner is the opaque identity a link is attributed to.
// The zero value means anonymous.
type Owner string

// Link represents a shortened URL
type Link struct {
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	Owner       Owner      `json:"owner,omitempty"`
	Clicks      int64      `json:"clicks"`
	Expiry      *time.Time `json:"expiry,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ExpiredAt reports whether the link's expiry lies before now.
// Links without an expiry never expire.
func (l *Link) ExpiredAt(now time.Time) bool {
	return l.Expiry != nil && l.Expiry.Before(now)
}
