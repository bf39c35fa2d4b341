package extract

import (
	"bytes"
	"path/filepath"
	"strings"

	"ai-redteam-be/pkg/apperr"

	"github.com/fumiama/go-docx"
	"github.com/gen2brain/go-fitz"
)

// Extractor turns uploaded file bytes into plain UTF-8 text, dispatching
// on the declared extension. Unrecognized extensions are passed through
// as raw text so plain files without a suffix still work.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Text extracts the textual content of data. Failures are wrapped in
// ExtractionError carrying the filename so the caller can abort only
// the affected file.
func (e *Extractor) Text(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return e.pdfText(filename, data)
	case ".doc", ".docx":
		return e.docxText(filename, data)
	default:
		// .txt and anything else: raw bytes as UTF-8
		return string(data), nil
	}
}

func (e *Extractor) pdfText(filename string, data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", apperr.NewExtractionError(filename, err)
	}
	defer doc.Close()

	var sb strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		// A single unreadable page contributes nothing rather than
		// failing the whole document.
		text, err := doc.Text(n)
		if err != nil {
			continue
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

func (e *Extractor) docxText(filename string, data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperr.NewExtractionError(filename, err)
	}

	var sb strings.Builder
	for _, item := range doc.Document.Body.Items {
		if p, ok := item.(*docx.Paragraph); ok {
			sb.WriteString(p.String())
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}
