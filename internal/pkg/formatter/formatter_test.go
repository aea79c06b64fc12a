package formatter

import (
	"bytes"
	"os"
	"testing"

	"github.com/futig/report-writer/internal/config"
	"github.com/futig/report-writer/internal/entity"
	"github.com/futig/report-writer/internal/pkg/office"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unidoc/unioffice/document"
)

const sampleHTML = `<p>&nbsp;</p><p><br></p><div>  </div>
<h2>一、概述</h2>
<p>新能源  <strong>装机容量</strong>持续增长。<em>注</em></p>
<ul><li>风电</li><li>光伏</li></ul>
<ol><li>first</li><li>second</li></ol>
<p>第一行<br>第二行</p>`

func TestParseBlocks(t *testing.T) {
	blocks, err := parseBlocks(sampleHTML)
	require.NoError(t, err)
	require.Len(t, blocks, 7)

	assert.Equal(t, blockHeading, blocks[0].kind)
	assert.Equal(t, 2, blocks[0].level)
	assert.Equal(t, "一、概述", blocks[0].text())

	assert.Equal(t, "新能源 装机容量持续增长。注", blocks[1].text())
	require.Len(t, blocks[1].runs, 4)
	assert.True(t, blocks[1].runs[1].bold)
	assert.False(t, blocks[1].runs[2].bold)
	assert.True(t, blocks[1].runs[3].italic)

	assert.Equal(t, "• ", blocks[2].listMarker())
	assert.Equal(t, "光伏", blocks[3].text())
	assert.Equal(t, "2. ", blocks[5].listMarker())
	assert.Equal(t, blocks[2].list, blocks[3].list)
	assert.NotEqual(t, blocks[3].list, blocks[4].list)

	assert.Equal(t, "第一行\n第二行", blocks[6].text())
}

func TestParseBlocksKeepsInnerEmptyParagraphs(t *testing.T) {
	blocks, err := parseBlocks("<p>a</p><p></p><p>b</p>")
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.True(t, blocks[1].empty())
}

func TestMarkdownFormatter(t *testing.T) {
	out, err := NewMarkdownFormatter().Format(sampleHTML)
	require.NoError(t, err)

	want := "## 一、概述\n\n" +
		"新能源 **装机容量**持续增长。*注*\n\n" +
		"- 风电\n- 光伏\n\n" +
		"1. first\n2. second\n\n" +
		"第一行  \n第二行\n"
	assert.Equal(t, want, string(out))
}

func TestMarkdownFormatterSeparatesAdjacentLists(t *testing.T) {
	out, err := NewMarkdownFormatter().Format("<ul><li>a</li><li>b</li></ul><ul><li>c</li></ul><p>end</p>")
	require.NoError(t, err)

	assert.Equal(t, "- a\n- b\n\n- c\n\nend\n", string(out))
}

func TestDOCXFormatter(t *testing.T) {
	requireOfficeLicense(t)

	out, err := NewDOCXFormatter("SimSun", 12).Format(sampleHTML)
	require.NoError(t, err)

	doc, err := document.Read(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	defer doc.Close()

	paras := doc.Paragraphs()
	require.Len(t, paras, 7)

	var first string
	for _, r := range paras[0].Runs() {
		first += r.Text()
	}
	assert.Equal(t, "一、概述", first)
}

func TestPDFFormatter(t *testing.T) {
	out, err := NewPDFFormatter(nil, 12).Format("<h1>Report</h1><p>Plain <b>latin</b> text.</p>")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestFactory(t *testing.T) {
	f := NewFactory(config.ExportConfig{DOCXFont: "SimSun", FontSizePt: 12})

	for format, ext := range map[entity.ResultFormat]string{
		entity.FormatDOCX:     ".docx",
		entity.FormatPDF:      ".pdf",
		entity.FormatMarkdown: ".md",
	} {
		got, err := f.Create(format)
		require.NoError(t, err)
		assert.Equal(t, ext, got.FileExtension())
	}

	_, err := f.Create("odt")
	assert.Error(t, err)
}

func requireOfficeLicense(t *testing.T) {
	t.Helper()
	key := os.Getenv(office.LicenseKeyEnv)
	if key == "" {
		t.Skipf("%s not set", office.LicenseKeyEnv)
	}
	require.NoError(t, office.Activate(key))
}
