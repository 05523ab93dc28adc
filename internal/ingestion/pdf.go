// Package ingestion inspects uploaded resumes and reads job descriptions from files or posting URLs.
package ingestion

import (
	"bytes"
	"fmt"
	"log"
	"net/http"

	"github.com/ledongthuc/pdf"
)

// MIMETypePDF is the only accepted upload type.
const MIMETypePDF = "application/pdf"

// headerWindow is how far into the file the %PDF- marker may appear.
const headerWindow = 1024

var pdfMagic = []byte("%PDF-")

// LooksLikePDF reports whether data carries a PDF header.
func LooksLikePDF(data []byte) bool {
	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	return bytes.Contains(window, pdfMagic)
}

// DetectMIMEType sniffs the content type of data.
func DetectMIMEType(data []byte) string {
	if LooksLikePDF(data) {
		return MIMETypePDF
	}
	return http.DetectContentType(data)
}

// PageCount returns the number of pages, or 0 if the document cannot be parsed.
func PageCount(data []byte) int {
	n, err := countPages(data)
	if err != nil {
		log.Printf("[ingestion] page count unavailable: %v", err)
		return 0
	}
	return n
}

func countPages(data []byte) (n int, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to read pdf: %w", err)
	}
	return reader.NumPage(), nil
}
