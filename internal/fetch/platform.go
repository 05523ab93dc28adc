package fetch

import (
	"net/url"
	"strings"
)

// Platform is a known applicant tracking system hosting job postings.
type Platform string

const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformWorkday    Platform = "workday"
	PlatformUnknown    Platform = "unknown"
)

// platformHosts maps host suffixes to their platform.
var platformHosts = []struct {
	suffix   string
	platform Platform
}{
	{"greenhouse.io", PlatformGreenhouse},
	{"lever.co", PlatformLever},
	{"myworkdayjobs.com", PlatformWorkday},
	{"workday.com", PlatformWorkday},
}

// contentSelectors are tried in order; the first match is the posting body.
var contentSelectors = map[Platform][]string{
	PlatformGreenhouse: {".job__description.body", ".job__description", ".job-description__content", "#content", ".job-post-container"},
	PlatformLever:      {".posting-page", ".section-wrapper.page-full-width", ".posting-description", ".content"},
	PlatformWorkday:    {"[data-automation-id='jobDescription']", ".job-description"},
	PlatformUnknown: {
		".job-description", ".job-content", "#job-description", "#job-content",
		".posting-content", ".job-details", "[data-testid='job-description']",
		"main", "article", ".content", "#content",
	},
}

// commonNoise is removed from every page before extraction.
var commonNoise = []string{
	"nav", "footer", "header", "script", "style", "noscript",
	"form", ".application-form", ".apply-button-container",
	".eeo-statement", ".voluntary-disclosure", ".legal-disclosure",
	".social-share", ".cookie-banner", ".cookie-consent", ".gdpr-notice",
}

var platformNoise = map[Platform][]string{
	PlatformGreenhouse: {".application--wrapper", ".voluntary-self-id", "#usa_self_id_section", ".post-apply"},
	PlatformLever:      {".apply-section", ".lever-application-form", ".posting-apply"},
	PlatformWorkday:    {"[data-automation-id='applyButton']", ".application-section"},
}

// DetectPlatform identifies the job board platform from a URL.
func DetectPlatform(rawURL string) Platform {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(parsed.Hostname())
	for _, h := range platformHosts {
		if host == h.suffix || strings.HasSuffix(host, "."+h.suffix) {
			return h.platform
		}
	}
	return PlatformUnknown
}

// ContentSelectors returns the posting-body selectors for platform.
func ContentSelectors(platform Platform) []string {
	if s, ok := contentSelectors[platform]; ok {
		return s
	}
	return contentSelectors[PlatformUnknown]
}

// NoiseSelectors returns the elements stripped before extraction.
func NoiseSelectors(platform Platform) []string {
	out := append([]string{}, commonNoise...)
	return append(out, platformNoise[platform]...)
}
