package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/allanpk716/expediente_notifier/internal/domain"
)

// Load reads the sidecar file. Relative template paths are resolved against
// formatsDir. The JSON object is read key by key so file order is kept.
func Load(sidecarPath, formatsDir string, logger *zap.Logger) (*Mapping, error) {
	data, err := os.ReadFile(sidecarPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMappingLoad, err)
	}

	m := newMapping(OriginSidecar, logger)
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrMappingLoad, sidecarPath, err)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrMappingLoad, sidecarPath, err)
		}
		operator, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s: unexpected token %v", domain.ErrMappingLoad, sidecarPath, tok)
		}
		var path string
		if err := dec.Decode(&path); err != nil {
			return nil, fmt.Errorf("%w: %s: value of %q: %w", domain.ErrMappingLoad, sidecarPath, operator, err)
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(formatsDir, path)
		}
		m.add(operator, path, true)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrMappingLoad, sidecarPath, err)
	}
	return m, nil
}

// expectDelim reads the next token and fails unless it is want.
func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// Save writes the mapping as an indented JSON object in table order. Paths
// inside formatsDir are stored relative to it.
func (m *Mapping) Save(sidecarPath, formatsDir string) error {
	if err := os.MkdirAll(filepath.Dir(sidecarPath), 0755); err != nil {
		return fmt.Errorf("create sidecar directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("{")
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n    ")
		if err := writeJSONString(&buf, e.Operator); err != nil {
			return err
		}
		buf.WriteString(": ")
		if err := writeJSONString(&buf, portablePath(e.TemplatePath, formatsDir)); err != nil {
			return err
		}
	}
	if len(m.entries) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")

	if err := os.WriteFile(sidecarPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write sidecar %s: %w", sidecarPath, err)
	}
	return nil
}

// writeJSONString appends s as a JSON string without HTML escaping.
func writeJSONString(buf *bytes.Buffer, s string) error {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode %q: %w", s, err)
	}
	buf.Write(bytes.TrimRight(b.Bytes(), "\n"))
	return nil
}

// portablePath returns path relative to base when path lives under base.
func portablePath(path, base string) string {
	if base == "" {
		return path
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}
