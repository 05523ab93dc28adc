package rendering

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Document is a standalone HTML page ready to be printed.
type Document struct {
	Title string
	HTML  string
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// BuildDocument converts markdown into a styled HTML page.
// Raw HTML in the markdown is not passed through; scripts, frames, and
// remote images are stripped so printing never reaches the network.
func BuildDocument(md string, style StyleProfile) (*Document, error) {
	style = style.withDefaults()

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return nil, &RenderError{Message: "failed to convert markdown", Cause: err}
	}

	body, title, err := sanitize(buf.String())
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = "Resume"
	}

	var out bytes.Buffer
	if err := shellTemplate.Execute(&out, newShellData(title, template.HTML(body), style)); err != nil {
		return nil, &TemplateError{Message: "failed to execute html shell", Cause: err}
	}
	return &Document{Title: title, HTML: out.String()}, nil
}

func sanitize(fragment string) (body, title string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", "", &RenderError{Message: "failed to parse generated html", Cause: err}
	}

	doc.Find("script, style, iframe, object, embed, link").Remove()
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if !strings.HasPrefix(strings.TrimSpace(src), "data:") {
			s.Remove()
		}
	})

	title = strings.TrimSpace(doc.Find("h1").First().Text())

	body, err = doc.Find("body").Html()
	if err != nil {
		return "", "", &RenderError{Message: "failed to serialize html", Cause: err}
	}
	return body, title, nil
}
