// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/resume-analyzer/internal/pipeline"
	"github.com/jonathan/resume-analyzer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// scoreBarWidth is the number of cells in the ATS score bar
	scoreBarWidth = 20
	// previewLines bounds the rewrite preview
	previewLines = 12
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// writeList appends up to limit items as bullets under heading.
func writeList(sb *strings.Builder, heading string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading + ":\n")
	count := min(len(items), limit)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > limit {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-limit))
	}
	sb.WriteString("\n")
}

// scoreBar renders score (0-100) as a fixed-width bar.
func scoreBar(score int) string {
	filled := score * scoreBarWidth / types.MaxATSScore
	filled = max(0, min(filled, scoreBarWidth))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", scoreBarWidth-filled) + "]"
}

// PrintAnalysis outputs a human-readable summary of the ATS report.
func (p *Printer) PrintAnalysis(result *types.AnalysisResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ATS Score: %3d/100 %s\n", result.ATSScore, scoreBar(result.ATSScore)))
	if c := result.ContactInfo; c.Name != "" {
		sb.WriteString(fmt.Sprintf("Candidate: %s\n", c.Name))
	}
	sb.WriteString("\n")

	if result.Summary != "" {
		sb.WriteString(result.Summary + "\n\n")
	}

	writeList(&sb, "Strengths", result.Strengths, maxItemsToShow)
	writeList(&sb, "Improvement Areas", result.ImprovementAreas, maxItemsToShow)

	p.printBox("ATS ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintKeywordMatch outputs matched and missing keywords.
func (p *Printer) PrintKeywordMatch(match types.KeywordMatch) {
	if len(match.Matched) == 0 && len(match.Missing) == 0 {
		return
	}

	var sb strings.Builder
	total := len(match.Matched) + len(match.Missing)
	sb.WriteString(fmt.Sprintf("Matched %d of %d keywords\n\n", len(match.Matched), total))
	if len(match.Matched) > 0 {
		sb.WriteString("✓ " + strings.Join(match.Matched, ", ") + "\n")
	}
	if len(match.Missing) > 0 {
		sb.WriteString("✗ " + strings.Join(match.Missing, ", ") + "\n")
	}

	p.printBox("KEYWORD MATCH", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRecommendations outputs numbered recommendations.
func (p *Printer) PrintRecommendations(recs []string) {
	if len(recs) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(recs), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, recs[i]))
	}
	if len(recs) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more", len(recs)-maxItemsToShow))
	}

	p.printBox("RECOMMENDATIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintContact outputs extracted contact details with profile links resolved.
func (p *Printer) PrintContact(c types.ContactInfo) {
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
		if f.value != "" {
			sb.WriteString(fmt.Sprintf("%-9s %s\n", f.label+":", f.value))
		}
	}
	if sb.Len() == 0 {
		return
	}

	p.printBox("CONTACT INFO", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRewrite outputs the first lines of the rewritten resume, or a notice when none exists.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintRewrite(result *types.AnalysisResult) {
	if result == nil || !result.HasRewrite() {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "NO REWRITTEN RESUME")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	lines := strings.Split(strings.TrimSpace(*result.RewrittenResumeMarkdown), "\n")
	more := len(lines) - previewLines
	if more > 0 {
		lines = append(lines[:previewLines], fmt.Sprintf("... %d more lines", more))
	}

	p.printBox("REWRITTEN RESUME (preview)", strings.Join(lines, "\n"))
}

// PrintProgress outputs one stage transition as a single line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(event pipeline.ProgressEvent) {
	marker := "→"
	switch event.Stage {
	case pipeline.StageRewriteFailed:
		marker = "⚠"
	case pipeline.StagePersisted, pipeline.StageRewriteDone:
		marker = "✓"
	}
	line := fmt.Sprintf("%s %s", marker, event.Stage)
	if event.Message != "" {
		line += ": " + event.Message
	}
	fmt.Fprintln(p.out, line)
}
