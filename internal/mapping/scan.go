package mapping

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/allanpk716/expediente_notifier/internal/extractor"
	"github.com/allanpk716/expediente_notifier/pkg/docx"
)

// templateFirstSignature finds a template's operator, scanning top to bottom.
var templateFirstSignature = extractor.Strategy{
	Name:    "template.first-signature",
	Pattern: extractor.OperatorNamePattern,
}

// Build scans formatsDir for templates with the given extension and maps the
// first operator name found in each to its path. Files are visited in name
// order; a template without a recognisable name is skipped.
func Build(formatsDir, extension string, logger *zap.Logger) (*Mapping, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if extension == "" {
		extension = DefaultExtension
	}

	files, err := findTemplates(formatsDir, extension)
	if err != nil {
		return newMapping(OriginEmpty, logger), err
	}

	m := newMapping(OriginScan, logger)
	for _, path := range files {
		operator, err := templateOperator(path)
		if err != nil {
			logger.Error("cannot read template", zap.String("template", filepath.Base(path)), zap.Error(err))
			continue
		}
		if operator == "" {
			logger.Warn("no operator name in template", zap.String("template", filepath.Base(path)))
			continue
		}
		// Files are visited in name order and the first template for a name
		// is kept, so a rebuild does not depend on which copy was added last.
		if !m.add(operator, path, false) {
			logger.Warn("operator already mapped, template ignored",
				zap.String("operator", operator),
				zap.String("template", filepath.Base(path)))
			continue
		}
		logger.Info("operator mapped",
			zap.String("operator", operator),
			zap.String("template", filepath.Base(path)))
	}
	return m, nil
}

// findTemplates lists the template files of dir, skipping Office lock files.
func findTemplates(dir, extension string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read formats folder: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "~$") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), extension) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}

// templateOperator opens the template at path and returns its operator name.
func templateOperator(path string) (string, error) {
	doc, err := docx.Open(path)
	if err != nil {
		return "", err
	}
	defer doc.Close()
	return discoverOperator(doc.ParagraphTexts()), nil
}

// discoverOperator returns the first operator name in paragraph order.
func discoverOperator(paragraphs []string) string {
	for _, p := range paragraphs {
		if name, ok := templateFirstSignature.Find(p); ok {
			return name
		}
	}
	return ""
}
