package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/resume-analyzer/internal/rendering"
	"github.com/spf13/cobra"
)

var renderPDFCmd = &cobra.Command{
	Use:   "render-pdf",
	Short: "Render a markdown resume to PDF",
	Long:  "Converts a markdown resume to a styled PDF with headless Chrome, using the same pipeline as the export endpoint.",
	RunE:  runRenderPDF,
}

var (
	renderPDFInput      string
	renderPDFOutput     string
	renderPDFChromePath string
	renderPDFMarginIn   float64
	renderPDFFontSizePt float64
	renderPDFPageSize   string
)

func init() {
	renderPDFCmd.Flags().StringVarP(&renderPDFInput, "in", "i", "", "Path to markdown resume (required)")
	renderPDFCmd.Flags().StringVarP(&renderPDFOutput, "out", "o", "", "Path to output PDF (required)")
	renderPDFCmd.Flags().StringVar(&renderPDFChromePath, "chrome-path", os.Getenv("CHROME_PATH"), "Chrome executable (defaults to CHROME_PATH)")
	renderPDFCmd.Flags().Float64Var(&renderPDFMarginIn, "margin-in", 0, "Page margin in inches (default from style)")
	renderPDFCmd.Flags().Float64Var(&renderPDFFontSizePt, "font-size-pt", 0, "Body font size in points (default from style)")
	renderPDFCmd.Flags().StringVar(&renderPDFPageSize, "page-size", "", "Page size: Letter or A4 (default Letter)")

	_ = renderPDFCmd.MarkFlagRequired("in")
	_ = renderPDFCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(renderPDFCmd)
}

func runRenderPDF(cmd *cobra.Command, _ []string) error {
	md, err := os.ReadFile(renderPDFInput)
	if err != nil {
		return fmt.Errorf("failed to read markdown: %w", err)
	}
	style, err := renderStyle(renderPDFPageSize, renderPDFMarginIn, renderPDFFontSizePt)
	if err != nil {
		return err
	}

	return renderMarkdownFile(commandContext(cmd), rendering.NewPDFRenderer(renderPDFChromePath), string(md), style, renderPDFOutput, cmd.OutOrStdout())
}

func renderMarkdownFile(ctx context.Context, renderer markdownRenderer, md string, style rendering.StyleProfile, outPath string, out io.Writer) error {
	pdf, err := renderer.RenderMarkdownToPDF(ctx, md, style)
	if err != nil {
		return err
	}
	if err := writeOutput(outPath, pdf); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "PDF written to %s (%d bytes)\n", outPath, len(pdf))
	return nil
}

// renderStyle overrides the default profile with any non-zero flag.
func renderStyle(pageSize string, marginIn, fontSizePt float64) (rendering.StyleProfile, error) {
	style := rendering.DefaultStyle()
	switch pageSize {
	case "", "Letter", "letter":
	case "A4", "a4":
		style.PageSize = "A4"
		style.PaperWidthIn = 8.27
		style.PaperHeightIn = 11.69
	default:
		return style, fmt.Errorf("unsupported page size %q (want Letter or A4)", pageSize)
	}
	if marginIn < 0 || fontSizePt < 0 {
		return style, fmt.Errorf("--margin-in and --font-size-pt must not be negative")
	}
	if marginIn > 0 {
		style.MarginIn = marginIn
	}
	if fontSizePt > 0 {
		style.FontSizePt = fontSizePt
	}
	return style, nil
}
