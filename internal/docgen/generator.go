// Package docgen renders case documents to letter-size PDF. Rendering
// is deterministic for a given field map so regenerating a document
// produces identical content.
package docgen

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/propertilaw/propertilaw/data"
	"github.com/propertilaw/propertilaw/internal/models"
)

// Fields are the merge values substituted into a document body.
type Fields map[string]string

// Generator renders typed documents.
type Generator struct{}

// NewGenerator returns a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Render produces the PDF bytes for a document type and field map.
// Unknown document types are an error; callers decide how to surface
// it.
func (g *Generator) Render(docType string, fields Fields) ([]byte, error) {
	var body string
	switch docType {
	case models.DocTypeNoticeToQuit:
		body = data.NoticeToQuitTemplate
	case models.DocTypeComplaint:
		body = data.ComplaintTemplate
	default:
		return nil, fmt.Errorf("no template for document type %s", docType)
	}

	return renderPDF(substitute(body, fields))
}

// RenderTemplate renders an arbitrary template body with the field
// map, for templates stored in the template library.
func (g *Generator) RenderTemplate(body string, fields Fields) ([]byte, error) {
	return renderPDF(substitute(body, fields))
}

// substitute performs literal placeholder replacement. Placeholders
// with no matching field are blanked. Fields are applied in sorted key
// order so output is stable.
func substitute(body string, fields Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		body = strings.ReplaceAll(body, "{{"+k+"}}", fields[k])
	}
	// Blank any placeholder that had no value
	for {
		start := strings.Index(body, "{{")
		if start < 0 {
			break
		}
		end := strings.Index(body[start:], "}}")
		if end < 0 {
			break
		}
		body = body[:start] + body[start+end+2:]
	}
	return body
}

func renderPDF(text string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(25, 25, 25)
	pdf.AddPage()
	pdf.SetFont("Times", "", 12)

	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			pdf.Ln(6)
			continue
		}
		pdf.MultiCell(0, 6, line, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf render failed: %w", err)
	}
	return buf.Bytes(), nil
}
