package formatter

import (
	"fmt"

	"github.com/bizintake/onboarding-backend/internal/entity"
	"go.uber.org/zap"
)

const baseTitle = "Business onboarding summary"

type Formatter interface {
	Format(plainText string) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct {
	logger *zap.Logger
}

func NewFactory(logger *zap.Logger) *Factory {
	return &Factory{logger: logger}
}

func (f *Factory) Create(format entity.ResultFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported format %q: %w", format, entity.ErrInvalidParameter)
	}
}
