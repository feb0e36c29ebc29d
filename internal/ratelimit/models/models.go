package models

import (
	"strings"
	"time"
)

// Class groups endpoints that share a quota.
type Class string

const (
	// ClassDocument covers document uploads, which run text recognition and
	// registry lookups.
	ClassDocument Class = "document"
	// ClassProfile covers profile re-evaluation, which may query registries.
	ClassProfile Class = "profile"
	// ClassRead covers status reads.
	ClassRead Class = "read"
	// ClassAdmin covers the admin endpoints.
	ClassAdmin Class = "admin"
)

// IsValid checks if the class is one of the supported values.
func (c Class) IsValid() bool {
	switch c {
	case ClassDocument, ClassProfile, ClassRead, ClassAdmin:
		return true
	}
	return false
}

// Limit is a quota: at most Requests within any Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result represents the outcome of a rate limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"resetAt"`
	RetryAfter int       `json:"retryAfter,omitempty"` // seconds, only set when not allowed
}

// Key builds the bucket key for a subject within a class.
func Key(class Class, subject string) string {
	return "rl:" + string(class) + ":" + SanitizeKeySegment(subject)
}

// SanitizeKeySegment escapes the key delimiter so a crafted subject cannot
// address another bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// RetryAfterSeconds rounds the wait until resetAt up to whole seconds.
func RetryAfterSeconds(now, resetAt time.Time) int {
	d := resetAt.Sub(now)
	if d <= 0 {
		return 1
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

// ExceededResponse is the API response when a quota is exhausted.
type ExceededResponse struct {
	Error          string    `json:"error"`
	Message        string    `json:"message"`
	QuotaLimit     int       `json:"quotaLimit"`
	QuotaRemaining int       `json:"quotaRemaining"`
	QuotaReset     time.Time `json:"quotaReset"`
	RetryAfter     int       `json:"retryAfter"`
}
