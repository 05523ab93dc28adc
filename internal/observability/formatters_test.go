package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jonathan/resume-analyzer/internal/pipeline"
	"github.com/jonathan/resume-analyzer/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPrintAnalysis(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	result := &types.AnalysisResult{
		ATSScore:         78,
		Summary:          "Strong backend profile.",
		Strengths:        []string{"Go", "PostgreSQL", "Kubernetes", "gRPC", "Terraform", "Kafka", "Redis"},
		ImprovementAreas: []string{"No metrics on impact"},
		ContactInfo:      types.ContactInfo{Name: "Jane Doe"},
	}

	p.PrintAnalysis(result)
	output := buf.String()

	assert.Contains(t, output, "ATS ANALYSIS")
	assert.Contains(t, output, " 78/100")
	assert.Contains(t, output, "Jane Doe")
	assert.Contains(t, output, "Strong backend profile.")
	assert.Contains(t, output, "• Terraform")
	assert.NotContains(t, output, "Kafka")
	assert.Contains(t, output, "... and 2 more")
	assert.Contains(t, output, "Improvement Areas")
}

func TestPrintAnalysis_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintAnalysis(nil)

	assert.Empty(t, buf.String())
}

func TestScoreBar(t *testing.T) {
	tests := []struct {
		score  int
		filled int
	}{
		{0, 0},
		{50, 10},
		{100, 20},
		{150, 20},
		{-5, 0},
	}
	for _, tt := range tests {
		bar := scoreBar(tt.score)
		assert.Equal(t, tt.filled, strings.Count(bar, "█"), "score %d", tt.score)
		assert.Equal(t, scoreBarWidth, strings.Count(bar, "█")+strings.Count(bar, "░"))
	}
}

func TestPrintKeywordMatch(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintKeywordMatch(types.KeywordMatch{Matched: []string{"Go", "SQL"}, Missing: []string{"Rust"}})
	output := buf.String()

	assert.Contains(t, output, "KEYWORD MATCH")
	assert.Contains(t, output, "Matched 2 of 3 keywords")
	assert.Contains(t, output, "✓ Go, SQL")
	assert.Contains(t, output, "✗ Rust")
}

func TestPrintKeywordMatch_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintKeywordMatch(types.KeywordMatch{})
	assert.Empty(t, buf.String())
}

func TestPrintRecommendations(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRecommendations([]string{"Quantify results", "Add a skills section"})
	output := buf.String()

	assert.Contains(t, output, "RECOMMENDATIONS")
	assert.Contains(t, output, "1. Quantify results")
	assert.Contains(t, output, "2. Add a skills section")
}

func TestPrintContact(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintContact(types.ContactInfo{Name: "Jane Doe", LinkedIn: "janedoe", GitHub: "@jdoe"})
	output := buf.String()

	assert.Contains(t, output, "CONTACT INFO")
	assert.Contains(t, output, "https://linkedin.com/in/janedoe")
	assert.Contains(t, output, "https://github.com/jdoe")
	assert.NotContains(t, output, "Phone")
}

func TestPrintRewrite(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinter(&buf).PrintRewrite(&types.AnalysisResult{})
		assert.Contains(t, buf.String(), "NO REWRITTEN RESUME")
	})

	t.Run("preview is bounded", func(t *testing.T) {
		var buf bytes.Buffer
		lines := make([]string, 20)
		for i := range lines {
			lines[i] = "- line"
		}
		md := "# Jane Doe\n" + strings.Join(lines, "\n")

		NewPrinter(&buf).PrintRewrite(&types.AnalysisResult{RewrittenResumeMarkdown: &md})
		output := buf.String()

		assert.Contains(t, output, "REWRITTEN RESUME (preview)")
		assert.Contains(t, output, "# Jane Doe")
		assert.Contains(t, output, "... 9 more lines")
	})
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TEST", strings.Repeat("x", 100))

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Contains(t, buf.String(), "...")
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintProgress(pipeline.ProgressEvent{Stage: pipeline.StageIngested})
	p.PrintProgress(pipeline.ProgressEvent{Stage: pipeline.StageRewriteFailed, Message: "model timeout"})
	p.PrintProgress(pipeline.ProgressEvent{Stage: pipeline.StagePersisted})

	assert.Equal(t, "→ ingested\n⚠ rewrite_failed: model timeout\n✓ persisted\n", buf.String())
}
