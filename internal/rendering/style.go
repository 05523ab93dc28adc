package rendering

import (
	"fmt"
	"html/template"
	"regexp"
)

// StyleProfile controls page geometry and typography of the exported PDF.
type StyleProfile struct {
	// PageSize is the CSS @page size keyword, e.g. "Letter" or "A4".
	PageSize      string
	PaperWidthIn  float64
	PaperHeightIn float64
	MarginIn      float64
	FontFamily    string
	FontSizePt    float64
	LineHeight    float64
	AccentColor   string
}

// DefaultStyle is US Letter with one inch margins and a serif face.
func DefaultStyle() StyleProfile {
	return StyleProfile{
		PageSize:      "Letter",
		PaperWidthIn:  8.5,
		PaperHeightIn: 11,
		MarginIn:      1,
		FontFamily:    `Georgia, "Times New Roman", serif`,
		FontSizePt:    11,
		LineHeight:    1.45,
		AccentColor:   "#1f3a5f",
	}
}

var cssValue = regexp.MustCompile(`^[A-Za-z0-9 ,."'#-]+$`)

// withDefaults fills zero or unsafe fields from DefaultStyle.
func (s StyleProfile) withDefaults() StyleProfile {
	d := DefaultStyle()
	if !cssValue.MatchString(s.PageSize) {
		s.PageSize = d.PageSize
	}
	if s.PaperWidthIn <= 0 || s.PaperHeightIn <= 0 {
		s.PaperWidthIn, s.PaperHeightIn = d.PaperWidthIn, d.PaperHeightIn
	}
	if s.MarginIn <= 0 || s.MarginIn*2 >= s.PaperWidthIn {
		s.MarginIn = d.MarginIn
	}
	if !cssValue.MatchString(s.FontFamily) {
		s.FontFamily = d.FontFamily
	}
	if s.FontSizePt <= 0 {
		s.FontSizePt = d.FontSizePt
	}
	if s.LineHeight <= 0 {
		s.LineHeight = d.LineHeight
	}
	if !cssValue.MatchString(s.AccentColor) {
		s.AccentColor = d.AccentColor
	}
	return s
}

type shellData struct {
	Title       string
	PageSize    template.CSS
	Margin      template.CSS
	FontFamily  template.CSS
	FontSize    template.CSS
	LineHeight  template.CSS
	AccentColor template.CSS
	Body        template.HTML
}

// Values are validated by withDefaults before being marked safe.
func newShellData(title string, body template.HTML, s StyleProfile) shellData {
	return shellData{
		Title:       title,
		PageSize:    template.CSS(s.PageSize),
		Margin:      template.CSS(fmt.Sprintf("%.2fin", s.MarginIn)),
		FontFamily:  template.CSS(s.FontFamily),
		FontSize:    template.CSS(fmt.Sprintf("%.1fpt", s.FontSizePt)),
		LineHeight:  template.CSS(fmt.Sprintf("%.2f", s.LineHeight)),
		AccentColor: template.CSS(s.AccentColor),
		Body:        body,
	}
}

var shellTemplate = template.Must(template.New("resume").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
@page { size: {{.PageSize}}; margin: {{.Margin}}; }
body { font-family: {{.FontFamily}}; font-size: {{.FontSize}}; line-height: {{.LineHeight}}; color: #222; margin: 0; }
h1 { font-size: 2em; margin: 0 0 0.25em; color: {{.AccentColor}}; }
h2 { font-size: 1.3em; margin: 1.1em 0 0.4em; padding-bottom: 0.15em; border-bottom: 1px solid #888; color: {{.AccentColor}}; }
h3 { font-size: 1.1em; margin: 0.8em 0 0.3em; }
p { margin: 0.4em 0; }
ul, ol { margin: 0.4em 0; padding-left: 1.4em; }
li { margin: 0.2em 0; }
a { color: {{.AccentColor}}; text-decoration: none; }
hr { border: none; border-top: 1px solid #ccc; margin: 1em 0; }
table { border-collapse: collapse; }
td, th { padding: 0.2em 0.5em; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))
