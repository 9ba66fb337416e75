// Package report writes a batch result as an XLSX workbook.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/allanpk716/expediente_notifier/internal/domain"
)

// Sheet names.
const (
	CasesSheet   = "Expedientes"
	SummarySheet = "Resumen"
)

// CaseHeaders are the column titles of the per-case sheet.
var CaseHeaders = []string{"Expediente", "Estado", "Motivo", "Notificación", "Duración (s)"}

var statusLabels = map[domain.CaseStatus]string{
	domain.StatusProcessed: "Procesado",
	domain.StatusSkipped:   "Omitido",
	domain.StatusFailed:    "Fallido",
}

// StatusLabel returns the label a case status is written with.
func StatusLabel(status domain.CaseStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}

// Build returns the workbook for result. The caller owns the file and must
// close it.
func Build(result domain.BatchResult) (*excelize.File, error) {
	f := excelize.NewFile()

	// NewFile starts with "Sheet1"; rename it instead of leaving it empty.
	if err := f.SetSheetName("Sheet1", CasesSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeCases(f, result.Cases); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}
	if err := writeSummary(f, result); err != nil {
		f.Close()
		return nil, err
	}

	index, _ := f.GetSheetIndex(CasesSheet)
	f.SetActiveSheet(index)
	return f, nil
}

// Write builds the workbook for result and saves it to path, creating the
// parent directory.
func Write(path string, result domain.BatchResult, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("report")

	f, err := Build(result)
	if err != nil {
		return err
	}
	defer f.Close()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write %s: %w", path, err)
	}

	logger.Info("batch report written",
		zap.String("path", path),
		zap.String("run_id", result.RunID),
		zap.Int("rows", len(result.Cases)))
	return nil
}

// writeCases fills the per-case sheet with a header row and one row per case.
func writeCases(f *excelize.File, cases []domain.CaseOutcome) error {
	for i, h := range CaseHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(CasesSheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, c := range cases {
		row := i + 2
		values := []any{c.Name, StatusLabel(c.Status), c.Reason, c.OutputPath, seconds(c.Duration)}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(CasesSheet, cell, v); err != nil {
				return fmt.Errorf("write case %q: %w", c.Name, err)
			}
		}
	}

	if err := setWidths(f, CasesSheet, caseWidths); err != nil {
		return err
	}
	return f.AutoFilter(CasesSheet, fmt.Sprintf("A1:E%d", len(cases)+1), nil)
}

// writeSummary fills the summary sheet with label and value pairs.
func writeSummary(f *excelize.File, result domain.BatchResult) error {
	rows := [][]any{
		{"Ejecución", result.RunID},
		{"Carpeta raíz", result.Root},
		{"Inicio", result.StartedAt.Format(time.DateTime)},
		{"Duración (s)", seconds(result.Duration)},
		{"Procesados", result.Processed},
		{"Omitidos", result.Skipped},
		{"Fallidos", result.Failed},
		{"Total", result.Total()},
	}
	for i, values := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &values); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return setWidths(f, SummarySheet, summaryWidths)
}

// Column widths per sheet, in characters.
var (
	caseWidths    = map[string]float64{"A": 36, "B": 12, "C": 60, "D": 70, "E": 14}
	summaryWidths = map[string]float64{"A": 16, "B": 60}
)

// setWidths applies widths to the columns of sheet.
func setWidths(f *excelize.File, sheet string, widths map[string]float64) error {
	for col, width := range widths {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("set width of %s!%s: %w", sheet, col, err)
		}
	}
	return nil
}

// seconds converts d to seconds with millisecond precision.
func seconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000
}
