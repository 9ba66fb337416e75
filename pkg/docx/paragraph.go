package docx

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// textNode is one <w:t> element of the body XML, or the fixed text of a
// <w:br/>, <w:cr/> or <w:tab/> inside a run. Fixed nodes are never edited.
type textNode struct {
	openStart   int // offset of '<' of the start tag
	openEnd     int // offset just past the start tag
	closeEnd    int // offset just past the end tag (== openEnd when self-closing)
	selfClosing bool
	readOnly    bool
	text        string
	dirty       bool
}

// set changes the node text and marks it for rendering.
func (n *textNode) set(text string) {
	if text != n.text {
		n.text = text
		n.dirty = true
	}
}

// writeXML writes the element with its current text, keeping the original
// qualified name and forcing whitespace preservation.
func (n *textNode) writeXML(sb *strings.Builder, content string) {
	qname := qualifiedName(content[n.openStart:n.openEnd])
	sb.WriteString("<")
	sb.WriteString(qname)
	sb.WriteString(` xml:space="preserve">`)
	xml.EscapeText(sb, []byte(n.text))
	sb.WriteString("</")
	sb.WriteString(qname)
	sb.WriteString(">")
}

// qualifiedName returns "w:t" from a raw start tag such as `<w:t xml:space="preserve">`.
func qualifiedName(tag string) string {
	name := strings.TrimPrefix(tag, "<")
	if i := strings.IndexAny(name, " \t\r\n/>"); i >= 0 {
		name = name[:i]
	}
	return name
}

// Run is a span of text sharing one set of run properties.
type Run struct {
	nodes []*textNode
}

// Text returns the run's text.
func (r *Run) Text() string {
	var sb strings.Builder
	for _, n := range r.nodes {
		sb.WriteString(n.text)
	}
	return sb.String()
}

// Paragraph is a body or table-cell paragraph.
type Paragraph struct {
	Runs []*Run
}

// Text returns the concatenated text of all runs.
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		for _, n := range r.nodes {
			sb.WriteString(n.text)
		}
	}
	return sb.String()
}

// textNodes returns the nodes of every run in order.
func (p *Paragraph) textNodes() []*textNode {
	var nodes []*textNode
	for _, r := range p.Runs {
		nodes = append(nodes, r.nodes...)
	}
	return nodes
}

// ReplaceRange replaces the bytes [start, end) of Text() with text.
// The new text goes into the run that holds start; text of other runs that
// falls inside the range is removed. Run formatting is untouched. Line breaks
// and tabs inside the range are kept.
func (p *Paragraph) ReplaceRange(start, end int, text string) error {
	nodes := p.textNodes()
	total := 0
	host, lastWritable := -1, -1
	for i, n := range nodes {
		total += len(n.text)
		if n.readOnly {
			continue
		}
		lastWritable = i
		if host < 0 && start < total {
			host = i
		}
	}
	if lastWritable < 0 {
		return fmt.Errorf("paragraph has no text runs")
	}
	if start < 0 || end < start || end > total {
		return fmt.Errorf("range [%d,%d) out of bounds for paragraph of %d bytes", start, end, total)
	}
	if host < 0 {
		host = lastWritable
	}

	offset := 0
	for i, n := range nodes {
		ns, ne := offset, offset+len(n.text)
		offset = ne
		if n.readOnly {
			continue
		}
		lo, hi := clamp(start, ns, ne)-ns, clamp(end, ns, ne)-ns
		switch {
		case i == host:
			n.set(n.text[:lo] + text + n.text[hi:])
		case hi > lo:
			n.set(n.text[:lo] + n.text[hi:])
		}
	}
	return nil
}

// SetText replaces the whole paragraph text. The result lives in the first run.
func (p *Paragraph) SetText(text string) error {
	return p.ReplaceRange(0, len(p.Text()), text)
}

// clamp limits v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Table is a body or nested table.
type Table struct {
	Rows []*Row
}

// Row is a table row.
type Row struct {
	Cells []*Cell
}

// Cell holds paragraphs and, possibly, nested tables.
type Cell struct {
	Paragraphs []*Paragraph
	Tables     []*Table
}

// Text joins the cell's own paragraphs with newlines.
func (c *Cell) Text() string {
	texts := make([]string, len(c.Paragraphs))
	for i, p := range c.Paragraphs {
		texts[i] = p.Text()
	}
	return strings.Join(texts, "\n")
}

// appendParagraphs adds the table's paragraphs to all in document order.
func (t *Table) appendParagraphs(all []*Paragraph) []*Paragraph {
	for _, row := range t.Rows {
		for _, cell := range row.Cells {
			all = append(all, cell.Paragraphs...)
			for _, nested := range cell.Tables {
				all = nested.appendParagraphs(all)
			}
		}
	}
	return all
}
