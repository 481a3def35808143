package domain

import "time"

// Business is the read-side record produced by the profile-creation
// collaborator. The orchestrator consumes it when assembling dispatch
// context and while polling for a usable screenshot.
type Business struct {
	ID            string
	UserID        string
	Name          string
	WebsiteURL    string
	ScreenshotURL string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasScreenshot reports whether the record carries a fetchable screenshot.
func (b *Business) HasScreenshot() bool {
	return b != nil && len(b.ScreenshotURL) > 0 && hasHTTPPrefix(b.ScreenshotURL)
}

func hasHTTPPrefix(s string) bool {
	return len(s) >= 4 && s[:4] == "http"
}

// Product is the latest catalog entry for a user, consumed when assembling
// payload context before dispatch.
type Product struct {
	ID          string
	BusinessID  string
	Name        string
	Description string
	ImageURL    string
	CreatedAt   time.Time
}
