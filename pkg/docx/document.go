// Package docx is a small read/write model over the body of a .docx document:
// paragraphs and tables of cells, each paragraph made of runs of text.
//
// The package archive is opened and written with github.com/nguyenthenguyen/docx.
// The body XML is indexed in place; edits are spliced back into the original
// markup on save, so everything the model does not touch (styles, images,
// headers, run properties) is copied unchanged.
package docx

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ndocx "github.com/nguyenthenguyen/docx"
)

// Document is an opened .docx file.
type Document struct {
	path       string
	reader     *ndocx.ReplaceDocx
	editable   *ndocx.Docx
	content    string
	paragraphs []*Paragraph
	tables     []*Table
	nodes      []*textNode
}

// Open reads the document at path and indexes its body.
func Open(path string) (*Document, error) {
	reader, err := ndocx.ReadDocxFile(path)
	if err != nil {
		return nil, fmt.Errorf("open docx %s: %w", path, err)
	}

	doc := &Document{
		path:     path,
		reader:   reader,
		editable: reader.Editable(),
	}
	doc.content = doc.editable.GetContent()

	if err := doc.index(); err != nil {
		reader.Close()
		return nil, fmt.Errorf("index document.xml of %s: %w", path, err)
	}
	return doc, nil
}

// Paragraphs returns the top-level body paragraphs, table content excluded.
func (d *Document) Paragraphs() []*Paragraph {
	return d.paragraphs
}

// Tables returns the top-level body tables.
func (d *Document) Tables() []*Table {
	return d.tables
}

// AllParagraphs returns the top-level paragraphs followed by every paragraph
// inside every table, descending into nested tables.
func (d *Document) AllParagraphs() []*Paragraph {
	all := make([]*Paragraph, 0, len(d.paragraphs))
	all = append(all, d.paragraphs...)
	for _, t := range d.tables {
		all = t.appendParagraphs(all)
	}
	return all
}

// ParagraphTexts returns the text of each top-level paragraph.
func (d *Document) ParagraphTexts() []string {
	texts := make([]string, len(d.paragraphs))
	for i, p := range d.paragraphs {
		texts[i] = p.Text()
	}
	return texts
}

// Text joins the top-level paragraphs with newlines.
func (d *Document) Text() string {
	return strings.Join(d.ParagraphTexts(), "\n")
}

// FullText is Text followed by one line per table row, cells separated by " | ".
func (d *Document) FullText() string {
	var sb strings.Builder
	sb.WriteString(d.Text())
	for _, t := range d.tables {
		for _, row := range t.Rows {
			cells := make([]string, len(row.Cells))
			for i, c := range row.Cells {
				cells[i] = c.Text()
			}
			sb.WriteByte('\n')
			sb.WriteString(strings.Join(cells, " | "))
		}
	}
	return sb.String()
}

// Modified reports whether any paragraph was edited since Open.
func (d *Document) Modified() bool {
	for _, n := range d.nodes {
		if n.dirty {
			return true
		}
	}
	return false
}

// SaveAs writes a full copy of the package with the edits applied.
// The file the document was opened from is never overwritten.
func (d *Document) SaveAs(outputPath string) error {
	if d.editable == nil {
		return fmt.Errorf("document is not open")
	}
	if samePath(outputPath, d.path) {
		return fmt.Errorf("refusing to overwrite source document %s", outputPath)
	}

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	d.editable.SetContent(d.render())
	if err := d.editable.WriteToFile(outputPath); err != nil {
		return fmt.Errorf("write docx %s: %w", outputPath, err)
	}
	return nil
}

// Close releases the underlying archive.
func (d *Document) Close() error {
	if d.reader != nil {
		err := d.reader.Close()
		d.reader = nil
		d.editable = nil
		return err
	}
	return nil
}

// render splices every edited text node back into the original body XML.
func (d *Document) render() string {
	var dirty []*textNode
	for _, n := range d.nodes {
		if n.dirty {
			dirty = append(dirty, n)
		}
	}
	if len(dirty) == 0 {
		return d.content
	}
	sort.Slice(dirty, func(i, j int) bool {
		return dirty[i].openStart < dirty[j].openStart
	})

	var sb strings.Builder
	sb.Grow(len(d.content))
	last := 0
	for _, n := range dirty {
		sb.WriteString(d.content[last:n.openStart])
		n.writeXML(&sb, d.content)
		last = n.closeEnd
	}
	sb.WriteString(d.content[last:])
	return sb.String()
}

// samePath reports whether a and b name the same file.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	if absA == absB {
		return true
	}
	infoA, errA := os.Stat(absA)
	infoB, errB := os.Stat(absB)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}
