package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/resume-analyzer/internal/analysis"
	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/entitlement"
	"github.com/jonathan/resume-analyzer/internal/ingestion"
	"github.com/jonathan/resume-analyzer/internal/llm"
	"github.com/jonathan/resume-analyzer/internal/observability"
	"github.com/jonathan/resume-analyzer/internal/pipeline"
	"github.com/jonathan/resume-analyzer/internal/rendering"
	"github.com/jonathan/resume-analyzer/internal/storage"
	"github.com/jonathan/resume-analyzer/internal/types"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a PDF resume locally",
	Long: `Runs the full analysis pipeline against a local PDF without a database or server.
The job description comes from --job-description, --job-file, or --job-url.
With --rewrite the rewritten resume is generated inline and can be exported with --markdown-out or --pdf-out.`,
	RunE: runAnalyzeCmd,
}

var analyzeOpts analyzeOptions

type analyzeOptions struct {
	ResumePath     string
	JobTitle       string
	JobDescription string
	JobFile        string
	JobURL         string
	UseBrowser     bool
	ChromePath     string
	Rewrite        bool
	ReferencePath  string
	MarkdownOut    string
	PDFOut         string
	JSON           bool
	Verbose        bool
	UploadDir      string
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeOpts.ResumePath, "resume", "r", "", "Path to the PDF resume (required)")
	f.StringVarP(&analyzeOpts.JobTitle, "job-title", "t", "", "Target job title (required)")
	f.StringVarP(&analyzeOpts.JobDescription, "job-description", "d", "", "Job description text")
	f.StringVar(&analyzeOpts.JobFile, "job-file", "", "Path to a text or markdown job description")
	f.StringVar(&analyzeOpts.JobURL, "job-url", "", "URL of a job posting to fetch")
	f.BoolVar(&analyzeOpts.UseBrowser, "browser", false, "Retry thin job postings in headless Chrome")
	f.StringVar(&analyzeOpts.ChromePath, "chrome-path", os.Getenv("CHROME_PATH"), "Chrome executable (defaults to CHROME_PATH)")
	f.BoolVar(&analyzeOpts.Rewrite, "rewrite", false, "Generate the rewritten resume")
	f.StringVar(&analyzeOpts.ReferencePath, "reference", "", "Markdown resume the rewrite should start from")
	f.StringVar(&analyzeOpts.MarkdownOut, "markdown-out", "", "Write the rewritten resume markdown to this path")
	f.StringVar(&analyzeOpts.PDFOut, "pdf-out", "", "Render the rewritten resume to this PDF path")
	f.BoolVar(&analyzeOpts.JSON, "json", false, "Print the stored record as JSON instead of a report")
	f.BoolVarP(&analyzeOpts.Verbose, "verbose", "v", false, "Print pipeline stages")
	f.StringVar(&analyzeOpts.UploadDir, "upload-dir", "", "Directory for the stored upload (defaults to a temporary directory)")

	_ = analyzeCmd.MarkFlagRequired("resume")
	_ = analyzeCmd.MarkFlagRequired("job-title")
	analyzeCmd.MarkFlagsMutuallyExclusive("job-description", "job-file", "job-url")
	analyzeCmd.MarkFlagsOneRequired("job-description", "job-file", "job-url")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyzeCmd(cmd *cobra.Command, _ []string) error {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	ctx := commandContext(cmd)

	ai, err := llm.NewClient(ctx, llm.ConfigFromEnv(), apiKey)
	if err != nil {
		return fmt.Errorf("failed to create AI client: %w", err)
	}
	defer ai.Close()

	return runAnalysis(ctx, analyzeOpts, ai, rendering.NewPDFRenderer(analyzeOpts.ChromePath), cmd.OutOrStdout())
}

// markdownRenderer is satisfied by *rendering.PDFRenderer.
type markdownRenderer interface {
	RenderMarkdownToPDF(ctx context.Context, md string, style rendering.StyleProfile) ([]byte, error)
}

// localGate grants the rewrite to the local operator when asked for.
type localGate struct {
	rewrite bool
}

func (g localGate) IsEntitled(_ context.Context, _ uuid.UUID, feature entitlement.Feature) bool {
	return g.rewrite && feature == entitlement.RewriteGeneration
}

func runAnalysis(ctx context.Context, opts analyzeOptions, ai llm.FileClient, renderer markdownRenderer, out io.Writer) error {
	if (opts.MarkdownOut != "" || opts.PDFOut != "") && !opts.Rewrite {
		return fmt.Errorf("--markdown-out and --pdf-out require --rewrite")
	}

	data, err := os.ReadFile(opts.ResumePath)
	if err != nil {
		return fmt.Errorf("failed to read resume: %w", err)
	}
	jobDescription, err := resolveJobDescription(ctx, opts)
	if err != nil {
		return err
	}

	uploadDir := opts.UploadDir
	if uploadDir == "" {
		tmp, err := os.MkdirTemp("", "resume-analyzer-*")
		if err != nil {
			return fmt.Errorf("failed to create upload directory: %w", err)
		}
		defer func() { _ = os.RemoveAll(tmp) }()
		uploadDir = tmp
	}
	blobs, err := storage.NewLocalStore(uploadDir)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(out)
	mode := config.RewriteDisabled
	if opts.Rewrite {
		mode = config.RewriteInline
	}
	pipelineOpts := pipeline.Options{RewriteMode: mode, ReferencePath: opts.ReferencePath}
	if opts.Verbose {
		pipelineOpts.OnProgress = printer.PrintProgress
	}

	records := analysis.NewMemoryStore()
	orchestrator, err := pipeline.New(pipeline.Deps{
		Blobs:   blobs,
		AI:      ai,
		Records: records,
		Gate:    localGate{rewrite: opts.Rewrite},
	}, pipelineOpts)
	if err != nil {
		return err
	}

	ownerID := uuid.New()
	resp, err := orchestrator.Submit(ctx, pipeline.Submission{
		OwnerID:        ownerID,
		FileName:       filepath.Base(opts.ResumePath),
		MIMEType:       ingestion.DetectMIMEType(data),
		Data:           data,
		JobTitle:       opts.JobTitle,
		JobDescription: jobDescription,
	})
	if err != nil {
		return err
	}

	// Inline rewrites have already updated the record.
	rec, err := records.FindByIDForOwner(ctx, resp.ID, ownerID)
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rec); err != nil {
			return err
		}
	} else {
		printReport(printer, rec, opts.Rewrite)
	}

	return exportRewrite(ctx, rec, opts, renderer, out)
}

func printReport(printer *observability.Printer, rec *types.ResumeAnalysis, rewrite bool) {
	result := rec.Analysis
	printer.PrintAnalysis(&result)
	printer.PrintKeywordMatch(result.KeywordMatch)
	printer.PrintRecommendations(result.Recommendations)
	printer.PrintContact(result.ContactInfo)
	if rewrite {
		printer.PrintRewrite(&result)
	}
}

func exportRewrite(ctx context.Context, rec *types.ResumeAnalysis, opts analyzeOptions, renderer markdownRenderer, out io.Writer) error {
	if opts.MarkdownOut == "" && opts.PDFOut == "" {
		return nil
	}
	if !rec.Analysis.HasRewrite() {
		return fmt.Errorf("no rewritten resume was generated")
	}
	md := rec.Analysis.RewrittenResumeMarkdown

	if opts.MarkdownOut != "" {
		if err := writeOutput(opts.MarkdownOut, []byte(*md)); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Rewritten resume written to %s\n", opts.MarkdownOut)
	}
	if opts.PDFOut != "" {
		pdf, err := renderer.RenderMarkdownToPDF(ctx, *md, rendering.DefaultStyle())
		if err != nil {
			return err
		}
		if err := writeOutput(opts.PDFOut, pdf); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "PDF written to %s\n", opts.PDFOut)
	}
	return nil
}

// resolveJobDescription reads the one job source that was given.
func resolveJobDescription(ctx context.Context, opts analyzeOptions) (string, error) {
	sources := 0
	for _, s := range []string{opts.JobDescription, opts.JobFile, opts.JobURL} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return "", fmt.Errorf("exactly one of --job-description, --job-file or --job-url must be provided")
	}

	switch {
	case opts.JobFile != "":
		return ingestion.JobDescriptionFromFile(opts.JobFile)
	case opts.JobURL != "":
		return ingestion.JobDescriptionFromURL(ctx, opts.JobURL, ingestion.JobSourceOptions{
			UseBrowser: opts.UseBrowser,
			ChromePath: opts.ChromePath,
		})
	default:
		text := strings.TrimSpace(opts.JobDescription)
		if text == "" {
			return "", fmt.Errorf("job description is empty")
		}
		return text, nil
	}
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
