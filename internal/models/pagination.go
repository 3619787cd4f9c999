package models

// Listing endpoints take limit/offset query parameters; these helpers
// clamp them to sane bounds before they reach SQL.

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// ClampLimitOffset validates limit/offset parameters and sets defaults
func ClampLimitOffset(limit, offset *int) {
	if *limit < 1 {
		*limit = DefaultListLimit
	}
	if *limit > MaxListLimit {
		*limit = MaxListLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}
