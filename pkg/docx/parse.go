package docx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// indexer walks document.xml once and records paragraphs, tables and the
// byte spans of every <w:t> element.
type indexer struct {
	doc     *Document
	tables  []*Table
	rows    []*Row
	cells   []*Cell
	para    *Paragraph
	run     *Run
	node    *textNode
	text    strings.Builder
	skipped int // depth inside text boxes, whose paragraphs are not body text
}

// index builds the paragraph and table model from d.content.
func (d *Document) index() error {
	ix := &indexer{doc: d}
	decoder := xml.NewDecoder(strings.NewReader(d.content))

	for {
		before := decoder.InputOffset()
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("offset %d: %w", before, err)
		}
		after := decoder.InputOffset()

		switch t := tok.(type) {
		case xml.StartElement:
			ix.start(t, before, after)
		case xml.EndElement:
			ix.end(t, before, after)
		case xml.CharData:
			if ix.node != nil {
				ix.text.Write(t)
			}
		}
	}

	if len(ix.tables) != 0 || ix.para != nil {
		return fmt.Errorf("unexpected end of document body")
	}
	return nil
}

// start opens the body element t.
func (ix *indexer) start(t xml.StartElement, before, after int64) {
	if t.Name.Local == "txbxContent" {
		ix.skipped++
		return
	}
	if ix.skipped > 0 || t.Name.Space != wordNamespace {
		return
	}

	switch t.Name.Local {
	case "tbl":
		table := &Table{}
		if cell := ix.cell(); cell != nil {
			cell.Tables = append(cell.Tables, table)
		} else if ix.para == nil {
			ix.doc.tables = append(ix.doc.tables, table)
		}
		ix.tables = append(ix.tables, table)
	case "tr":
		if len(ix.tables) == 0 {
			return
		}
		row := &Row{}
		table := ix.tables[len(ix.tables)-1]
		table.Rows = append(table.Rows, row)
		ix.rows = append(ix.rows, row)
	case "tc":
		if len(ix.rows) == 0 {
			return
		}
		cell := &Cell{}
		row := ix.rows[len(ix.rows)-1]
		row.Cells = append(row.Cells, cell)
		ix.cells = append(ix.cells, cell)
	case "p":
		if ix.para != nil {
			return
		}
		ix.para = &Paragraph{}
		if cell := ix.cell(); cell != nil {
			cell.Paragraphs = append(cell.Paragraphs, ix.para)
		} else {
			ix.doc.paragraphs = append(ix.doc.paragraphs, ix.para)
		}
	case "r":
		if ix.para == nil || ix.run != nil {
			return
		}
		ix.run = &Run{}
		ix.para.Runs = append(ix.para.Runs, ix.run)
	case "t":
		if ix.run == nil || ix.node != nil {
			return
		}
		ix.node = &textNode{openStart: int(before), openEnd: int(after)}
		ix.text.Reset()
	case "br", "cr", "tab":
		if ix.run == nil || ix.node != nil {
			return
		}
		if text := breakText(t); text != "" {
			ix.run.nodes = append(ix.run.nodes, &textNode{openStart: int(before), openEnd: int(after), readOnly: true, text: text})
		}
	}
}

// breakText is the text a run-level break stands for. Page and column
// breaks carry no text.
func breakText(t xml.StartElement) string {
	switch t.Name.Local {
	case "tab":
		return "\t"
	case "cr":
		return "\n"
	}
	for _, attr := range t.Attr {
		if attr.Name.Local == "type" && attr.Value != "textWrapping" {
			return ""
		}
	}
	return "\n"
}

// end closes the body element t.
func (ix *indexer) end(t xml.EndElement, before, after int64) {
	if t.Name.Local == "txbxContent" {
		ix.skipped--
		return
	}
	if ix.skipped > 0 || t.Name.Space != wordNamespace {
		return
	}

	switch t.Name.Local {
	case "tbl":
		if n := len(ix.tables); n > 0 {
			ix.tables = ix.tables[:n-1]
		}
	case "tr":
		if n := len(ix.rows); n > 0 {
			ix.rows = ix.rows[:n-1]
		}
	case "tc":
		if n := len(ix.cells); n > 0 {
			ix.cells = ix.cells[:n-1]
		}
	case "p":
		ix.para = nil
		ix.run = nil
	case "r":
		ix.run = nil
	case "t":
		if ix.node == nil {
			return
		}
		ix.node.closeEnd = int(after)
		// The decoder reports <w:t/> as a start and an end token; the end one consumes no input.
		ix.node.selfClosing = before == after
		ix.node.text = ix.text.String()
		ix.run.nodes = append(ix.run.nodes, ix.node)
		ix.doc.nodes = append(ix.doc.nodes, ix.node)
		ix.node = nil
	}
}

// cell returns the innermost open table cell, or nil.
func (ix *indexer) cell() *Cell {
	if n := len(ix.cells); n > 0 {
		return ix.cells[n-1]
	}
	return nil
}
