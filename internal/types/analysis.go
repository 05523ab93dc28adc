package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxATSScore is the upper bound of the compatibility score.
const MaxATSScore = 100

// SourceFile describes the uploaded document that an analysis was produced from.
type SourceFile struct {
	// StorageLocator addresses the durable blob. Never exposed in API payloads.
	StorageLocator   string `json:"-" firestore:"storage_locator"`
	OriginalFileName string `json:"original_file_name" firestore:"original_file_name"`
	MIMEType         string `json:"mime_type" firestore:"mime_type"`
	ByteSize         int64  `json:"byte_size" firestore:"byte_size"`
	PageCount        int    `json:"page_count,omitempty" firestore:"page_count"`
}

// KeywordMatch splits the job description keywords into those found in the resume and those absent.
type KeywordMatch struct {
	Matched []string `json:"matched" firestore:"matched"`
	Missing []string `json:"missing" firestore:"missing"`
}

// ContactInfo holds contact details extracted from the resume.
// Profile handles are stored as bare identifiers; use the URL helpers for presentation.
type ContactInfo struct {
	Name     string `json:"name" firestore:"name"`
	Email    string `json:"email" firestore:"email"`
	Phone    string `json:"phone" firestore:"phone"`
	Location string `json:"location" firestore:"location"`
	LinkedIn string `json:"linkedin" firestore:"linkedin"`
	GitHub   string `json:"github" firestore:"github"`
	Website  string `json:"website" firestore:"website"`
}

// AnalysisResult is the structured ATS report produced by the model.
type AnalysisResult struct {
	ATSScore                int          `json:"atsScore" firestore:"ats_score"`
	Summary                 string       `json:"summary" firestore:"summary"`
	Strengths               []string     `json:"strengths" firestore:"strengths"`
	ImprovementAreas        []string     `json:"improvementAreas" firestore:"improvement_areas"`
	KeywordMatch            KeywordMatch `json:"keywordMatch" firestore:"keyword_match"`
	Recommendations         []string     `json:"recommendations" firestore:"recommendations"`
	DetailedAnalysis        string       `json:"detailedAnalysis" firestore:"detailed_analysis"`
	ContactInfo             ContactInfo  `json:"contactInfo" firestore:"contact_info"`
	RewrittenResumeMarkdown *string      `json:"rewrittenResumeMarkdown,omitempty" firestore:"rewritten_resume_markdown"`
}

// ResumeAnalysis is the persisted record of one submission.
type ResumeAnalysis struct {
	ID             uuid.UUID      `json:"id"`
	OwnerID        uuid.UUID      `json:"owner_id"`
	SourceFile     SourceFile     `json:"source_file"`
	JobTitle       string         `json:"job_title"`
	JobDescription string         `json:"job_description"`
	Analysis       AnalysisResult `json:"analysis"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// HasRewrite reports whether a non-empty rewritten resume is stored.
func (a *AnalysisResult) HasRewrite() bool {
	return a.RewrittenResumeMarkdown != nil && strings.TrimSpace(*a.RewrittenResumeMarkdown) != ""
}

// Normalize clamps the score and replaces nil slices with empty ones.
func (a *AnalysisResult) Normalize() {
	if a.ATSScore < 0 {
		a.ATSScore = 0
	}
	if a.ATSScore > MaxATSScore {
		a.ATSScore = MaxATSScore
	}
	a.Strengths = nonNil(a.Strengths)
	a.ImprovementAreas = nonNil(a.ImprovementAreas)
	a.Recommendations = nonNil(a.Recommendations)
	a.KeywordMatch.Matched = nonNil(a.KeywordMatch.Matched)
	a.KeywordMatch.Missing = nonNil(a.KeywordMatch.Missing)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// LinkedInURL returns the profile URL for the LinkedIn handle, or "" if none.
func (c ContactInfo) LinkedInURL() string {
	return profileURL(c.LinkedIn, "linkedin.com", "https://linkedin.com/in/")
}

// GitHubURL returns the profile URL for the GitHub handle, or "" if none.
func (c ContactInfo) GitHubURL() string {
	return profileURL(c.GitHub, "github.com", "https://github.com/")
}

// WebsiteURL returns the website with a scheme, or "" if none.
func (c ContactInfo) WebsiteURL() string {
	site := strings.TrimSpace(c.Website)
	if site == "" {
		return ""
	}
	if hasScheme(site) {
		return site
	}
	return "https://" + site
}

func profileURL(handle, host, prefix string) string {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return ""
	}
	if hasScheme(handle) {
		return handle
	}
	lower := strings.ToLower(handle)
	if strings.HasPrefix(lower, host) || strings.HasPrefix(lower, "www."+host) {
		return "https://" + handle
	}
	return prefix + strings.Trim(handle, "/@")
}

func hasScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// CreateAnalysisResponse is returned by a successful submission.
type CreateAnalysisResponse struct {
	ID             uuid.UUID      `json:"id"`
	Analysis       AnalysisResult `json:"analysis"`
	RewritePending bool           `json:"rewrite_pending"`
}

// AnalysisView is the API projection of a ResumeAnalysis.
type AnalysisView struct {
	ResumeAnalysis
	BlobURL string `json:"blob_url"`
}

// UpdateMarkdownRequest is the body of an explicit rewrite edit.
type UpdateMarkdownRequest struct {
	Markdown string `json:"markdown" validate:"required"`
}
