// Package rendering converts rewritten resume markdown into a printable PDF.
package rendering

import "fmt"

// DependencyHint tells operators how to make the headless browser available.
const DependencyHint = "PDF export requires Chrome or Chromium. Install it (for example `apt-get install chromium`) or set CHROME_PATH to the browser executable."

// TemplateError represents an error parsing or executing the HTML shell template
type TemplateError struct {
	Message string
	Cause   error
}

func (e *TemplateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("template error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("template error: %s", e.Message)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// RenderError represents a general rendering failure
type RenderError struct {
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("render error: %s", e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// DependencyMissingError means the browser could not start because its
// executable or shared libraries are absent from the host.
type DependencyMissingError struct {
	Cause error
}

func (e *DependencyMissingError) Error() string {
	return fmt.Sprintf("rendering dependency missing: %v", e.Cause)
}

func (e *DependencyMissingError) Unwrap() error {
	return e.Cause
}

// Remediation returns the operator-facing fix.
func (e *DependencyMissingError) Remediation() string {
	return DependencyHint
}
