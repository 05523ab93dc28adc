package rendering

import (
	"strings"

	"github.com/google/uuid"
)

// DownloadFilename derives an attachment name from the contact name and job title,
// e.g. "jane-doe-backend-engineer-resume.pdf". Without either it falls back to
// "updated-resume-<id>.pdf".
func DownloadFilename(contactName, jobTitle string, id uuid.UUID) string {
	var parts []string
	for _, s := range []string{contactName, jobTitle} {
		if slug := Slugify(s); slug != "" {
			parts = append(parts, slug)
		}
	}
	if len(parts) == 0 {
		return "updated-resume-" + id.String() + ".pdf"
	}
	return strings.Join(parts, "-") + "-resume.pdf"
}

// Slugify lowercases text and keeps only [a-z0-9], collapsing every other run into one hyphen.
func Slugify(text string) string {
	if text == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(text))

	pendingDash := false
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && result.Len() > 0 {
				result.WriteByte('-')
			}
			pendingDash = false
			result.WriteRune(r)
		default:
			pendingDash = true
		}
	}

	out := result.String()
	// Keeps the Content-Disposition header reasonable.
	if len(out) > 80 {
		out = strings.TrimRight(out[:80], "-")
	}
	return out
}
