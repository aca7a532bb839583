package formatter

import (
	"testing"

	"github.com/bizintake/onboarding-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFactoryCreate(t *testing.T) {
	factory := NewFactory(zap.NewNop())

	md, err := factory.Create(entity.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, ".md", md.FileExtension())

	pdf, err := factory.Create(entity.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, ".pdf", pdf.FileExtension())

	_, err = factory.Create(entity.ResultFormat("docx"))
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)
}

func TestMarkdownFormatter(t *testing.T) {
	out, err := NewMarkdownFormatter().Format("Company name: Acme\n")
	require.NoError(t, err)

	assert.Contains(t, string(out), "# Business onboarding summary")
	assert.Contains(t, string(out), "Company name: Acme")
}

func TestPDFFormatter(t *testing.T) {
	out, err := NewPDFFormatter(zap.NewNop()).Format("Company name: Acme\n")
	require.NoError(t, err)

	assert.Equal(t, "%PDF", string(out[:4]))
	assert.Equal(t, "application/pdf", NewPDFFormatter(zap.NewNop()).ContentType())
}

func TestPDFFormatterWarnsOnMissingFont(t *testing.T) {
	if resolveFontPath() != "" {
		t.Skip("DejaVuSans font is present, fallback branch not reachable")
	}

	core, logs := observer.New(zapcore.WarnLevel)
	_, err := NewPDFFormatter(zap.New(core)).Format("Company name: Acme\n")
	require.NoError(t, err)

	entries := logs.FilterMessageSnippet("falling back to core Arial").All()
	require.Len(t, entries, 1)
	assert.Equal(t, pdfFontRuntimePath, entries[0].ContextMap()["runtime_path"])
}
