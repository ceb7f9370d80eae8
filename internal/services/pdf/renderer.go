// Package pdf renders digest markdown to PDF. Only the constructs the
// digest writer emits are handled: headings, paragraphs, lists and
// emphasis. Text outside the core PDF fonts renders best-effort.
package pdf

import (
	"bytes"
	"os"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/opsbrain/internal/common"
)

// Renderer converts markdown to PDF files.
type Renderer struct {
	logger arbor.ILogger
}

// NewRenderer creates a markdown PDF renderer.
func NewRenderer(logger arbor.ILogger) *Renderer {
	return &Renderer{logger: logger}
}

// RenderMarkdown parses markdown and writes an A4 PDF to outPath.
func (r *Renderer) RenderMarkdown(markdown []byte, outPath string) error {
	doc := goldmark.New().Parser().Parse(text.NewReader(markdown))

	page := fpdf.New("P", "mm", "A4", "")
	page.SetMargins(10, 10, 10)
	page.SetAutoPageBreak(true, 10)
	page.AddPage()
	page.SetFont("Helvetica", "", 10)

	w := &walker{page: page, source: markdown}
	if err := ast.Walk(doc, w.walk); err != nil {
		return common.GenericError(err, "cannot render PDF")
	}

	var buf bytes.Buffer
	if err := page.Output(&buf); err != nil {
		return common.GenericError(err, "cannot render PDF")
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return common.IOError(err, "cannot write PDF %s", outPath)
	}

	r.logger.Debug().
		Str("path", outPath).
		Int("bytes", buf.Len()).
		Msg("PDF written")
	return nil
}

type walker struct {
	page      *fpdf.Fpdf
	source    []byte
	bold      bool
	italic    bool
	listLevel int
}

func (w *walker) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		w.heading(node, entering)
	case *ast.Paragraph:
		if !entering {
			w.page.Ln(6)
		}
	case *ast.Text:
		if entering {
			w.page.Write(5, string(node.Text(w.source)))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.applyFont()
	case *ast.List:
		if entering {
			w.listLevel++
		} else {
			w.listLevel--
			if w.listLevel == 0 {
				w.page.Ln(2)
			}
		}
	case *ast.ListItem:
		if entering {
			w.page.Ln(5)
			w.page.SetX(12 + float64(w.listLevel)*4)
			w.page.Write(5, "- ")
		}
	case *ast.ThematicBreak:
		if entering {
			w.page.Ln(3)
			w.page.Line(10, w.page.GetY(), 200, w.page.GetY())
			w.page.Ln(3)
		}
	}
	return ast.WalkContinue, nil
}

func (w *walker) heading(n *ast.Heading, entering bool) {
	if entering {
		w.page.Ln(6)
		size := 11.0
		switch n.Level {
		case 1:
			size = 15
		case 2:
			size = 13
		}
		w.page.SetFont("Helvetica", "B", size)
		return
	}
	w.page.Ln(6)
	w.applyFont()
}

func (w *walker) applyFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.page.SetFont("Helvetica", style, 10)
}
