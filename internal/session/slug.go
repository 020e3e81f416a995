package session

import (
	"regexp"
	"strings"
	"time"
)

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug creates a session directory name from the form title and a
// timestamp
func GenerateSlug(formTitle string) string {
	slug := strings.ToLower(formTitle)
	slug = nonAlphaNum.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "session"
	}

	timestamp := time.Now().Format("20060102-150405")

	return slug + "-" + timestamp
}
