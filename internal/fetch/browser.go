package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// MinContentLength is the extracted text length below which a page is
// assumed to render its posting with JavaScript.
const MinContentLength = 500

// settleDelay gives client-side rendering time to populate the page.
const settleDelay = 2 * time.Second

// NeedsBrowser reports whether text is too short to be a server-rendered posting.
func NeedsBrowser(text string) bool {
	return len(strings.TrimSpace(text)) < MinContentLength
}

// RenderWithBrowser loads rawURL in headless Chrome and returns the rendered HTML.
// An empty execPath lets chromedp locate the browser.
func RenderWithBrowser(ctx context.Context, rawURL, execPath string, timeout time.Duration) (string, error) {
	if err := ValidateURL(rawURL); err != nil {
		return "", err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(DefaultUserAgent),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(settleDelay),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{URL: rawURL, Message: "browser rendering failed", Cause: err}
	}
	return html, nil
}

// Posting fetches rawURL and extracts the posting text, retrying in a headless
// browser when useBrowser is set and the static page is too thin.
func Posting(ctx context.Context, rawURL string, opts *Options, useBrowser bool, execPath string) (string, error) {
	page, err := Get(ctx, rawURL, opts)
	if err != nil {
		return "", err
	}
	text, err := PostingText(rawURL, page.HTML)
	if err != nil {
		return "", fmt.Errorf("extracting posting text: %w", err)
	}
	if !useBrowser || !NeedsBrowser(text) {
		return text, nil
	}

	html, err := RenderWithBrowser(ctx, rawURL, execPath, opts.withDefaults().Timeout)
	if err != nil {
		// The static text is still usable.
		return text, nil
	}
	if rendered, err := PostingText(rawURL, html); err == nil && len(rendered) > len(text) {
		return rendered, nil
	}
	return text, nil
}
