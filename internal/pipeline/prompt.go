package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/resume-analyzer/internal/llm"
	"github.com/jonathan/resume-analyzer/internal/prompts"
	"github.com/jonathan/resume-analyzer/internal/types"
)

const promptFile = "analysis.json"

var analysisSchema = llm.ExtractionSchema{
	Name: "AnalysisResult",
	Fields: []llm.SchemaField{
		{Name: "atsScore", Type: "number", Description: "0-100", Required: true},
		{Name: "summary", Type: `"string"`, Required: true},
		{Name: "strengths", Type: `["string"]`, Required: true},
		{Name: "improvementAreas", Type: `["string"]`, Required: true},
		{Name: "keywordMatch", Type: `{"matched": ["string"], "missing": ["string"]}`, Required: true},
		{Name: "recommendations", Type: `["string"]`, Required: true},
		{Name: "detailedAnalysis", Type: `"markdown string"`},
		{Name: "contactInfo", Type: `{"name": "string", "email": "string", "phone": "string", "location": "string", "linkedin": "string", "github": "string", "website": "string"}`},
	},
}

// AnalysisPromptParts builds the structured extraction request for file.
func AnalysisPromptParts(jobTitle, jobDescription string, file *llm.RemoteFile) []llm.PromptPart {
	request := prompts.Format(prompts.MustGet(promptFile, "analyze-request"), map[string]string{
		"JobTitle":       jobTitle,
		"JobDescription": jobDescription,
	})
	return []llm.PromptPart{
		llm.TextPart(request),
		llm.TextPart(llm.BuildFormatInstruction(analysisSchema)),
		llm.TextPart(prompts.MustGet(promptFile, "analyze-guidance")),
		llm.FilePart(file),
	}
}

// BuildRewritePrompt embeds the analysis and job context into the rewrite instructions.
// An empty reference asks for a rewrite based on the attached document alone.
func BuildRewritePrompt(reference, jobTitle, jobDescription string, result types.AnalysisResult) string {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		ref = prompts.MustGet(promptFile, "rewrite-no-reference")
	} else {
		ref = "```markdown\n" + ref + "\n```"
	}

	return prompts.Format(prompts.MustGet(promptFile, "rewrite-resume"), map[string]string{
		"Reference":        ref,
		"JobTitle":         jobTitle,
		"JobDescription":   jobDescription,
		"ATSScore":         strconv.Itoa(result.ATSScore),
		"Strengths":        joinOr(result.Strengths, ", ", "None identified"),
		"ImprovementAreas": joinOr(result.ImprovementAreas, ", ", "None identified"),
		"MatchedKeywords":  joinOr(result.KeywordMatch.Matched, ", ", "None"),
		"MissingKeywords":  joinOr(result.KeywordMatch.Missing, ", ", "None"),
		"Recommendations":  joinOr(result.Recommendations, "; ", "None"),
		"Contact":          contactLines(result.ContactInfo),
	})
}

func joinOr(items []string, sep, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, sep)
}

func contactLines(c types.ContactInfo) string {
	fields := []struct{ label, value string }{
		{"Name", c.Name},
		{"Email", c.Email},
		{"Phone", c.Phone},
		{"Location", c.Location},
		{"LinkedIn", c.LinkedInURL()},
		{"GitHub", c.GitHubURL()},
		{"Website", c.WebsiteURL()},
	}
	var sb strings.Builder
	for _, f := range fields {
		value := f.value
		if value == "" {
			value = "Keep original"
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", f.label, value))
	}
	return strings.TrimRight(sb.String(), "\n")
}
