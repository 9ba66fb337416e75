// Package processor runs the notification pipeline over a folder of case files.
package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/allanpk716/expediente_notifier/internal/domain"
)

// Options holds the folder and file naming conventions of a case tree.
type Options struct {
	SkipToken           string
	PrincipalFolder     string
	NotificationsFolder string
	AcceptancePrefix    string
	TemplateExtension   string
}

// DefaultOptions returns the conventions used by the case office.
func DefaultOptions() Options {
	return Options{
		SkipToken:           " 00 ",
		PrincipalFolder:     "01. CUADERNO PRINCIPAL",
		NotificationsFolder: "02. NOTIFICACIONES",
		AcceptancePrefix:    "Aceptación de solicitud",
		TemplateExtension:   ".docx",
	}
}

// Processor drives extraction and generation for each case folder.
type Processor struct {
	extractor domain.CaseExtractor
	generator domain.NotificationGenerator
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a processor. Empty option fields take their default.
func New(extractor domain.CaseExtractor, generator domain.NotificationGenerator, opts Options, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.SkipToken == "" {
		opts.SkipToken = def.SkipToken
	}
	if opts.PrincipalFolder == "" {
		opts.PrincipalFolder = def.PrincipalFolder
	}
	if opts.NotificationsFolder == "" {
		opts.NotificationsFolder = def.NotificationsFolder
	}
	if opts.AcceptancePrefix == "" {
		opts.AcceptancePrefix = def.AcceptancePrefix
	}
	if opts.TemplateExtension == "" {
		opts.TemplateExtension = def.TemplateExtension
	}
	return &Processor{
		extractor: extractor,
		generator: generator,
		opts:      opts,
		logger:    logger.Named("processor"),
		now:       time.Now,
	}
}

// RunBatch processes every immediate subdirectory of root, one at a time.
// A failing case never stops the batch. When root cannot be listed the
// result has zero counts and the error is logged. Cancelling ctx stops the
// run before the next folder; the folder in progress is completed.
func (p *Processor) RunBatch(ctx context.Context, root string) domain.BatchResult {
	result := domain.BatchResult{
		RunID:     uuid.NewString(),
		Root:      root,
		StartedAt: p.now(),
	}
	logger := p.logger.With(zap.String("run_id", result.RunID))
	logger.Info("batch started", zap.String("root", root))

	entries, err := os.ReadDir(root)
	if err != nil {
		logger.Error("cannot list case folders", zap.String("root", root), zap.Error(err))
		result.Duration = p.now().Sub(result.StartedAt)
		return result
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			logger.Warn("batch cancelled", zap.Int("counted", result.Total()), zap.Error(err))
			break
		}

		path := filepath.Join(root, entry.Name())
		if !isDir(path) {
			continue
		}

		outcome := p.caseOutcome(ctx, path, logger)
		result.Add(outcome)
	}

	result.Duration = p.now().Sub(result.StartedAt)
	logger.Info("batch finished",
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration))
	return result
}

// ProcessCase handles a single case folder and reports whether a
// notification was written.
func (p *Processor) ProcessCase(ctx context.Context, caseDir string) (domain.CaseOutcome, bool) {
	outcome := p.caseOutcome(ctx, caseDir, p.logger)
	return outcome, outcome.Status == domain.StatusProcessed
}

// caseOutcome skips or runs one case folder and logs how it ended.
func (p *Processor) caseOutcome(ctx context.Context, caseDir string, logger *zap.Logger) domain.CaseOutcome {
	name := filepath.Base(caseDir)
	logger = logger.With(zap.String("case", name))
	start := p.now()

	var outcome domain.CaseOutcome
	if p.shouldSkip(name) {
		logger.Info("case skipped", zap.String("token", p.opts.SkipToken))
		outcome = domain.CaseOutcome{Name: name, Status: domain.StatusSkipped, Reason: "name contains skip token"}
	} else {
		outcome = p.runCase(ctx, caseDir, logger)
	}
	outcome.Duration = p.now().Sub(start)

	switch outcome.Status {
	case domain.StatusProcessed:
		logger.Info("case processed", zap.String("output", outcome.OutputPath), zap.Duration("duration", outcome.Duration))
	case domain.StatusFailed:
		logger.Warn("case failed", zap.String("reason", outcome.Reason))
	}
	return outcome
}

// shouldSkip reports whether the folder name carries the skip token.
func (p *Processor) shouldSkip(name string) bool {
	return strings.Contains(norm.NFC.String(name), norm.NFC.String(p.opts.SkipToken))
}

// runCase performs the per-case steps. A panic is recovered and reported as
// a failure of this case only.
func (p *Processor) runCase(ctx context.Context, caseDir string, logger *zap.Logger) (outcome domain.CaseOutcome) {
	name := filepath.Base(caseDir)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while processing case",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			outcome = domain.CaseOutcome{Name: name, Status: domain.StatusFailed, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	logger.Info("processing case")
	outputPath, err := p.process(ctx, caseDir, logger)
	if err != nil {
		return domain.CaseOutcome{Name: name, Status: domain.StatusFailed, Reason: err.Error()}
	}
	return domain.CaseOutcome{Name: name, Status: domain.StatusProcessed, OutputPath: outputPath}
}

// process checks the folder layout, extracts the record and writes the
// notification. It returns the output path.
func (p *Processor) process(ctx context.Context, caseDir string, logger *zap.Logger) (string, error) {
	name := filepath.Base(caseDir)

	principal, ok := findDir(caseDir, p.opts.PrincipalFolder)
	if !ok {
		return "", &domain.StructuralError{Case: name, Reason: fmt.Sprintf("folder %q not found", p.opts.PrincipalFolder)}
	}

	notifications, ok := findDir(caseDir, p.opts.NotificationsFolder)
	if !ok {
		notifications = filepath.Join(caseDir, p.opts.NotificationsFolder)
		logger.Info("creating notifications folder", zap.String("folder", p.opts.NotificationsFolder))
		if err := os.MkdirAll(notifications, 0755); err != nil {
			logger.Error("cannot create notifications folder", zap.Error(err))
			return "", &domain.StructuralError{Case: name, Reason: "cannot create notifications folder", Cause: err}
		}
	}

	acceptance, err := p.findAcceptance(principal)
	if err != nil {
		return "", &domain.StructuralError{Case: name, Reason: "cannot list principal folder", Cause: err}
	}
	if acceptance == "" {
		return "", &domain.StructuralError{Case: name, Reason: fmt.Sprintf("no file starting with %q", p.opts.AcceptancePrefix)}
	}
	logger.Debug("acceptance document found", zap.String("file", filepath.Base(acceptance)))

	record, err := p.extractor.ExtractFile(acceptance)
	if err != nil {
		return "", err
	}

	// A started case runs to completion even if the batch is cancelled.
	result, err := p.generator.Generate(context.WithoutCancel(ctx), record, notifications)
	if err != nil {
		return "", err
	}
	return result.OutputPath, nil
}

// findAcceptance returns the acceptance document of a principal folder: the
// first template-extension file carrying the prefix in name order, else the
// first file carrying the prefix. An empty path means none was found.
func (p *Processor) findAcceptance(principal string) (string, error) {
	entries, err := os.ReadDir(principal)
	if err != nil {
		return "", err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	prefix := norm.NFC.String(p.opts.AcceptancePrefix)
	var first string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasPrefix(norm.NFC.String(entry.Name()), prefix) {
			continue
		}
		path := filepath.Join(principal, entry.Name())
		if strings.EqualFold(filepath.Ext(entry.Name()), p.opts.TemplateExtension) {
			return path, nil
		}
		if first == "" {
			first = path
		}
	}
	return first, nil
}

// findDir looks up the subdirectory name of dir, comparing names after NFC
// normalization.
func findDir(dir, name string) (string, bool) {
	direct := filepath.Join(dir, name)
	if isDir(direct) {
		return direct, true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	want := norm.NFC.String(name)
	for _, entry := range entries {
		if norm.NFC.String(entry.Name()) != want {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if isDir(path) {
			return path, true
		}
	}
	return "", false
}

// isDir reports whether path exists and is a directory.
func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
