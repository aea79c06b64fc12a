package formatter

import (
	"strings"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(htmlContent string) ([]byte, error) {
	blocks, err := parseBlocks(htmlContent)
	if err != nil {
		return nil, err
	}

	parts := make([]string, 0, len(blocks))
	for i, b := range blocks {
		var sb strings.Builder
		switch b.kind {
		case blockHeading:
			sb.WriteString(strings.Repeat("#", b.level) + " ")
		case blockListItem:
			if b.ordered {
				sb.WriteString(b.listMarker())
			} else {
				sb.WriteString("- ")
			}
		}
		for _, r := range b.runs {
			sb.WriteString(markdownRun(r))
		}

		// Items of the same list stay on adjacent lines.
		if i > 0 && sameList(blocks[i-1], b) {
			parts[len(parts)-1] += "\n" + sb.String()
			continue
		}
		parts = append(parts, sb.String())
	}

	return []byte(strings.Join(parts, "\n\n") + "\n"), nil
}

func sameList(prev, cur block) bool {
	return prev.kind == blockListItem && cur.kind == blockListItem &&
		prev.list != 0 && prev.list == cur.list
}

func markdownRun(r run) string {
	text := strings.ReplaceAll(r.text, "\n", "  \n")
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || (!r.bold && !r.italic) {
		return text
	}
	mark := ""
	if r.bold {
		mark += "**"
	}
	if r.italic {
		mark += "*"
	}
	// Markers must hug the text, so surrounding spaces stay outside.
	lead := text[:strings.Index(text, trimmed)]
	trail := text[len(lead)+len(trimmed):]
	return lead + mark + trimmed + reverse(mark) + trail
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
