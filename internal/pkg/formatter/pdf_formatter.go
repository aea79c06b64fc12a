package formatter

import (
	"bytes"
	"os"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfContentType   = "application/pdf"
	pdfFileExtension = ".pdf"

	// pdfFontName is the internal name used by gofpdf
	// for the UTF-8 capable font.
	pdfFontName     = "ReportFont"
	pdfFallbackFont = "Arial"

	pdfLineSpacing = 1.5
	pdfPointToMM   = 0.3528
)

type PDFFormatter struct {
	fontPaths []string
	sizePt    float64
}

func NewPDFFormatter(fontPaths []string, sizePt float64) *PDFFormatter {
	return &PDFFormatter{fontPaths: fontPaths, sizePt: sizePt}
}

// resolveFontPath returns the first candidate TTF that exists. Without one,
// only Latin text renders correctly.
func (f *PDFFormatter) resolveFontPath() string {
	for _, p := range f.fontPaths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (f *PDFFormatter) Format(htmlContent string) ([]byte, error) {
	blocks, err := parseBlocks(htmlContent)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	fontName := pdfFallbackFont
	if fontPath := f.resolveFontPath(); fontPath != "" {
		// Register every style under the same family from the one file.
		for _, style := range []string{"", "B", "I", "BI"} {
			pdf.AddUTF8Font(pdfFontName, style, fontPath)
		}
		fontName = pdfFontName
	}

	for _, b := range blocks {
		size := f.sizePt
		if b.kind == blockHeading {
			size = headingSize(f.sizePt, b.level)
		}
		lineHeight := size * pdfPointToMM * pdfLineSpacing

		if b.kind == blockListItem {
			pdf.SetFont(fontName, "", size)
			pdf.Write(lineHeight, b.listMarker())
		}
		for _, r := range b.runs {
			pdf.SetFont(fontName, pdfStyle(r.bold || b.kind == blockHeading, r.italic), size)
			pdf.Write(lineHeight, r.text)
		}
		pdf.Ln(lineHeight)
		if b.kind == blockHeading {
			pdf.Ln(lineHeight / 3)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pdfStyle(bold, italic bool) string {
	style := ""
	if bold {
		style += "B"
	}
	if italic {
		style += "I"
	}
	return style
}

func (f *PDFFormatter) ContentType() string {
	return pdfContentType
}

func (f *PDFFormatter) FileExtension() string {
	return pdfFileExtension
}
