package formatter

import (
	"fmt"

	"github.com/futig/report-writer/internal/config"
	"github.com/futig/report-writer/internal/entity"
)

// Formatter renders editor HTML into a downloadable document.
type Formatter interface {
	Format(htmlContent string) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct {
	cfg config.ExportConfig
}

func NewFactory(cfg config.ExportConfig) *Factory {
	return &Factory{cfg: cfg}
}

func (f *Factory) Create(format entity.ResultFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(f.cfg.DOCXFont, f.cfg.FontSizePt), nil
	case entity.FormatPDF:
		return NewPDFFormatter(f.cfg.PDFFontPaths, f.cfg.FontSizePt), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
