package formatter

import (
	"bytes"

	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unioffice/measurement"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

// DOCXFormatter writes every run in one font family, including East Asian
// text, so the exported document looks the same in any Word build.
type DOCXFormatter struct {
	font   string
	sizePt float64
}

func NewDOCXFormatter(font string, sizePt float64) *DOCXFormatter {
	return &DOCXFormatter{font: font, sizePt: sizePt}
}

func (f *DOCXFormatter) Format(htmlContent string) ([]byte, error) {
	blocks, err := parseBlocks(htmlContent)
	if err != nil {
		return nil, err
	}

	doc := document.New()
	defer doc.Close()

	for _, b := range blocks {
		para := doc.AddParagraph()
		size := f.sizePt
		switch b.kind {
		case blockHeading:
			para.SetStyle(headingStyle(b.level))
			size = headingSize(f.sizePt, b.level)
		case blockListItem:
			marker := para.AddRun()
			f.styleRun(marker.Properties(), size, false, false)
			marker.AddText(b.listMarker())
		}

		for _, r := range b.runs {
			docRun := para.AddRun()
			f.styleRun(docRun.Properties(), size, r.bold || b.kind == blockHeading, r.italic)
			addTextWithBreaks(docRun, r.text)
		}
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *DOCXFormatter) styleRun(props document.RunProperties, sizePt float64, bold, italic bool) {
	props.SetFontFamily(f.font)
	props.SetSize(measurement.Distance(sizePt) * measurement.Point)
	if bold {
		props.SetBold(true)
	}
	if italic {
		props.SetItalic(true)
	}
}

func addTextWithBreaks(r document.Run, text string) {
	for i, line := range bytes.Split([]byte(text), []byte("\n")) {
		if i > 0 {
			r.AddBreak()
		}
		if len(line) > 0 {
			r.AddText(string(line))
		}
	}
}

func headingStyle(level int) string {
	switch level {
	case 1:
		return "Heading1"
	case 2:
		return "Heading2"
	default:
		return "Heading3"
	}
}

func headingSize(base float64, level int) float64 {
	switch level {
	case 1:
		return base + 6
	case 2:
		return base + 4
	case 3:
		return base + 2
	default:
		return base
	}
}

func (f *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (f *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
