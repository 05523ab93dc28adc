package rendering

import (
	"context"
	"errors"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// DefaultRenderTimeout bounds one browser session.
const DefaultRenderTimeout = 60 * time.Second

// PDFRenderer prints HTML through a headless Chrome started per call.
type PDFRenderer struct {
	// ExecPath overrides the browser executable; empty uses chromedp's lookup.
	ExecPath string
	Timeout  time.Duration
}

// NewPDFRenderer creates a renderer. execPath is usually CHROME_PATH.
func NewPDFRenderer(execPath string) *PDFRenderer {
	return &PDFRenderer{ExecPath: execPath, Timeout: DefaultRenderTimeout}
}

// RenderMarkdownToPDF renders md with style and returns the PDF bytes.
func (r *PDFRenderer) RenderMarkdownToPDF(ctx context.Context, md string, style StyleProfile) ([]byte, error) {
	if strings.TrimSpace(md) == "" {
		return nil, &RenderError{Message: "markdown is empty"}
	}
	doc, err := BuildDocument(md, style)
	if err != nil {
		return nil, err
	}
	return r.RenderHTMLToPDF(ctx, doc.HTML, style.withDefaults())
}

// RenderHTMLToPDF prints a complete HTML page.
func (r *PDFRenderer) RenderHTMLToPDF(ctx context.Context, html string, style StyleProfile) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	// An empty Run starts the browser so launch failures can be told apart from print failures.
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, classifyStartError(err)
	}

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(style.PaperWidthIn).
				WithPaperHeight(style.PaperHeightIn).
				WithMarginTop(style.MarginIn).
				WithMarginBottom(style.MarginIn).
				WithMarginLeft(style.MarginIn).
				WithMarginRight(style.MarginIn).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, &RenderError{Message: "failed to print pdf", Cause: err}
	}
	if len(pdf) == 0 {
		return nil, &RenderError{Message: "browser returned an empty pdf"}
	}
	log.Printf("[render] printed %d bytes", len(pdf))
	return pdf, nil
}

var missingDependencyMarkers = []string{
	"executable file not found",
	"error while loading shared libraries",
	"cannot open shared object file",
	"fork/exec",
}

func classifyStartError(err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return &DependencyMissingError{Cause: err}
	}
	msg := err.Error()
	for _, marker := range missingDependencyMarkers {
		if strings.Contains(msg, marker) {
			return &DependencyMissingError{Cause: err}
		}
	}
	return &RenderError{Message: "failed to start browser", Cause: err}
}
