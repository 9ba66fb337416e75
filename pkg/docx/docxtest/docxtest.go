// Package docxtest writes small but complete .docx packages for tests.
package docxtest

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Block is a body element: a paragraph or a table.
type Block interface {
	writeXML(sb *strings.Builder)
}

// Paragraph is written as one <w:r> per entry of Runs. Inside a run, "\n" is
// written as <w:br/> and "\t" as <w:tab/>, the way Word stores them.
type Paragraph struct {
	Runs []string
	Bold bool
}

// P builds a paragraph with one run per argument.
func P(runs ...string) Paragraph {
	return Paragraph{Runs: runs}
}

// Bold builds a paragraph whose runs are bold.
func Bold(runs ...string) Paragraph {
	return Paragraph{Runs: runs, Bold: true}
}

// Lines builds one single-run paragraph per line.
func Lines(lines ...string) []Block {
	blocks := make([]Block, len(lines))
	for i, l := range lines {
		blocks[i] = P(l)
	}
	return blocks
}

// writeXML writes the paragraph as <w:p>.
func (p Paragraph) writeXML(sb *strings.Builder) {
	sb.WriteString("<w:p>")
	for _, r := range p.Runs {
		sb.WriteString("<w:r>")
		if p.Bold {
			sb.WriteString("<w:rPr><w:b/></w:rPr>")
		}
		writeRunText(sb, r)
		sb.WriteString("</w:r>")
	}
	sb.WriteString("</w:p>")
}

// writeRunText writes text as <w:t> elements split by break elements.
func writeRunText(sb *strings.Builder, text string) {
	start := 0
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != '\n' && text[i] != '\t' {
			continue
		}
		if i > start || (start == 0 && i == len(text)) {
			sb.WriteString(`<w:t xml:space="preserve">`)
			xml.EscapeText(sb, []byte(text[start:i]))
			sb.WriteString("</w:t>")
		}
		if i < len(text) {
			if text[i] == '\n' {
				sb.WriteString("<w:br/>")
			} else {
				sb.WriteString("<w:tab/>")
			}
		}
		start = i + 1
	}
}

// Cell is the content of one table cell.
type Cell []Block

// C builds a cell.
func C(blocks ...Block) Cell {
	return Cell(blocks)
}

// Table is a grid of cells.
type Table struct {
	Rows [][]Cell
}

// T builds a table from rows.
func T(rows ...[]Cell) Table {
	return Table{Rows: rows}
}

// Row builds a table row.
func Row(cells ...Cell) []Cell {
	return cells
}

// writeXML writes the table and its cells as <w:tbl>.
func (t Table) writeXML(sb *strings.Builder) {
	sb.WriteString("<w:tbl><w:tblPr><w:tblW w:w=\"0\" w:type=\"auto\"/></w:tblPr>")
	for _, row := range t.Rows {
		sb.WriteString("<w:tr>")
		for _, cell := range row {
			sb.WriteString("<w:tc>")
			if len(cell) == 0 {
				// Word requires at least one paragraph per cell.
				sb.WriteString("<w:p/>")
			}
			for _, b := range cell {
				b.writeXML(sb)
			}
			sb.WriteString("</w:tc>")
		}
		sb.WriteString("</w:tr>")
	}
	sb.WriteString("</w:tbl>")
}

// DocumentXML renders word/document.xml for the given body.
func DocumentXML(blocks ...Block) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, b := range blocks {
		b.writeXML(&sb)
	}
	sb.WriteString(`<w:sectPr/></w:body></w:document>`)
	return sb.String()
}

// Write creates a .docx at path containing blocks.
func Write(path string, blocks ...Block) error {
	return WriteRaw(path, DocumentXML(blocks...))
}

// WriteRaw creates a .docx at path with documentXML as its body part.
func WriteRaw(path string, documentXML string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	parts := []struct{ name, body string }{
		{"[Content_Types].xml", contentTypes},
		{"_rels/.rels", packageRels},
		{"word/_rels/document.xml.rels", documentRels},
		{"word/document.xml", documentXML},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return fmt.Errorf("create part %s: %w", part.name, err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return fmt.Errorf("write part %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return f.Close()
}

// ReadDocumentXML returns word/document.xml of the package at path.
func ReadDocumentXML(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", fmt.Errorf("word/document.xml not found in %s", path)
}

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const packageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
</Relationships>`
