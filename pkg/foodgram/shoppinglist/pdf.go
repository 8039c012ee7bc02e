package shoppinglist

import (
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/gosimple/unidecode"
)

// Layout in points, measured from the top of an A4 page.
const (
	titleY       = 92.0
	ruleY        = 112.0
	firstLineY   = 172.0
	lineStep     = 30.0
	leftX        = 60.0
	ruleEndX     = 500.0
	bottomMargin = 40.0
	titleSize    = 20.0
	lineSize     = 12.0
	fontFamily   = "ListFont"
	coreFont     = "Helvetica"
)

// Renderer draws shopping lists. With an empty FontPath the core Helvetica
// font is used and text is reduced to ASCII.
type Renderer struct {
	FontPath string
}

// Build lays out the document without writing it.
func (r Renderer) Build(lines []string, date time.Time) (*fpdf.Fpdf, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(Title(date), true)
	pdf.SetCreator("foodgram", true)
	pdf.SetAutoPageBreak(false, 0)

	family := coreFont
	text := asciiText
	if r.FontPath != "" {
		pdf.AddUTF8Font(fontFamily, "", r.FontPath)
		family = fontFamily
		text = func(s string) string { return s }
	}

	_, pageHeight := pdf.GetPageSize()

	pdf.AddPage()
	pdf.SetFont(family, "", titleSize)
	pdf.Text(leftX, titleY, text(Title(date)))
	pdf.Line(leftX, ruleY, ruleEndX, ruleY)

	pdf.SetFont(family, "", lineSize)
	y := firstLineY
	for _, line := range lines {
		if y > pageHeight-bottomMargin {
			pdf.AddPage()
			pdf.SetFont(family, "", lineSize)
			y = titleY
		}
		pdf.Text(leftX, y, text(line))
		y += lineStep
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	return pdf, nil
}

// Render writes the PDF to w.
func (r Renderer) Render(w io.Writer, lines []string, date time.Time) error {
	pdf, err := r.Build(lines, date)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

// asciiText maps text onto what the core fonts can encode.
func asciiText(s string) string {
	return unidecode.Unidecode(strings.ReplaceAll(s, "☑", "[x]"))
}
