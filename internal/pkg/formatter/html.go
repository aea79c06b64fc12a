package formatter

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading
	blockListItem
)

type run struct {
	text   string
	bold   bool
	italic bool
}

// block is one paragraph-level element of the editor HTML.
type block struct {
	kind    blockKind
	level   int // heading level, 1-6
	ordered bool
	index   int // 1-based position in an ordered list
	list    int // source list id, 0 outside lists
	runs    []run
}

func (b block) text() string {
	var sb strings.Builder
	for _, r := range b.runs {
		sb.WriteString(r.text)
	}
	return sb.String()
}

func (b block) empty() bool {
	return strings.TrimSpace(b.text()) == ""
}

// listMarker is the prefix rendered before a list item.
func (b block) listMarker() string {
	if b.ordered {
		return fmt.Sprintf("%d. ", b.index)
	}
	return "• "
}

type inlineStyle struct {
	bold   bool
	italic bool
	pre    bool
}

type listContext struct {
	id      int
	ordered bool
	count   int
}

type htmlWalker struct {
	blocks []block
	cur    *block
	lists  []listContext
	listID int
}

// parseBlocks flattens editor HTML into blocks. Leading blocks without text
// are dropped so exported documents do not start with a blank page.
func parseBlocks(src string) ([]block, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	w := &htmlWalker{}
	w.walk(root, inlineStyle{})
	w.flush()

	for len(w.blocks) > 0 && w.blocks[0].empty() {
		w.blocks = w.blocks[1:]
	}
	return w.blocks, nil
}

func (w *htmlWalker) walkChildren(n *html.Node, st inlineStyle) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, st)
	}
}

func (w *htmlWalker) walk(n *html.Node, st inlineStyle) {
	switch n.Type {
	case html.TextNode:
		w.addText(n.Data, st)
		return
	case html.ElementNode:
	default:
		w.walkChildren(n, st)
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head, atom.Title, atom.Template:
		return
	case atom.Br:
		w.ensureBlock()
		w.appendRun(run{text: "\n", bold: st.bold, italic: st.italic})
		return
	case atom.Strong, atom.B:
		st.bold = true
	case atom.Em, atom.I:
		st.italic = true
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		w.flush()
		w.cur = &block{kind: blockHeading, level: int(n.Data[1] - '0')}
		w.walkChildren(n, st)
		w.flush()
		return
	case atom.Ul, atom.Ol:
		w.flush()
		w.listID++
		w.lists = append(w.lists, listContext{id: w.listID, ordered: n.DataAtom == atom.Ol})
		w.walkChildren(n, st)
		w.lists = w.lists[:len(w.lists)-1]
		w.flush()
		return
	case atom.Li:
		w.flush()
		b := &block{kind: blockListItem}
		if len(w.lists) > 0 {
			top := &w.lists[len(w.lists)-1]
			top.count++
			b.ordered, b.index, b.list = top.ordered, top.count, top.id
		}
		w.cur = b
		w.walkChildren(n, st)
		w.flush()
		return
	case atom.P, atom.Pre:
		w.flush()
		w.cur = &block{kind: blockParagraph}
		st.pre = st.pre || n.DataAtom == atom.Pre
		w.walkChildren(n, st)
		w.flush()
		return
	case atom.Div, atom.Blockquote, atom.Section, atom.Article, atom.Table, atom.Tr, atom.Hr:
		w.flush()
		w.walkChildren(n, st)
		w.flush()
		return
	}

	w.walkChildren(n, st)
}

func (w *htmlWalker) ensureBlock() {
	if w.cur == nil {
		w.cur = &block{kind: blockParagraph}
	}
}

func (w *htmlWalker) addText(s string, st inlineStyle) {
	if !st.pre {
		s = collapseSpace(s)
		if w.cur == nil || w.cur.text() == "" || strings.HasSuffix(w.cur.text(), "\n") {
			s = strings.TrimLeft(s, " ")
		}
	}
	if s == "" {
		return
	}
	w.ensureBlock()
	w.appendRun(run{text: s, bold: st.bold, italic: st.italic})
}

func (w *htmlWalker) appendRun(r run) {
	if n := len(w.cur.runs); n > 0 {
		last := &w.cur.runs[n-1]
		if last.bold == r.bold && last.italic == r.italic {
			last.text += r.text
			return
		}
	}
	w.cur.runs = append(w.cur.runs, r)
}

func (w *htmlWalker) flush() {
	if w.cur == nil {
		return
	}
	if n := len(w.cur.runs); n > 0 {
		w.cur.runs[n-1].text = strings.TrimRight(w.cur.runs[n-1].text, " ")
	}
	w.blocks = append(w.blocks, *w.cur)
	w.cur = nil
}

// collapseSpace folds runs of HTML whitespace into one space. Non-breaking
// spaces are kept.
func collapseSpace(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				sb.WriteByte(' ')
			}
			space = true
		default:
			sb.WriteRune(r)
			space = false
		}
	}
	return sb.String()
}
