package cmd

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/allanpk716/expediente_notifier/internal/config"
	"github.com/allanpk716/expediente_notifier/internal/domain"
	"github.com/allanpk716/expediente_notifier/internal/extractor"
	"github.com/allanpk716/expediente_notifier/internal/generator"
	"github.com/allanpk716/expediente_notifier/internal/mapping"
	"github.com/allanpk716/expediente_notifier/internal/processor"
	"github.com/allanpk716/expediente_notifier/internal/report"
)

// mappingSource returns where the operator mapping lives for cfg.
func mappingSource(cfg *config.Config) mapping.Source {
	return mapping.Source{
		FormatsDir:  cfg.Paths.Formatos,
		SidecarPath: cfg.Paths.MappingFile,
		Extension:   cfg.Processing.TemplateExtension,
	}
}

// NewPipeline wires the extractor, the operator mapping and the generator
// into a batch processor.
func NewPipeline(cfg *config.Config, logger *zap.Logger) *processor.Processor {
	m := mapping.LoadOrBuild(mappingSource(cfg), logger)
	opts := processor.Options{
		SkipToken:           cfg.Processing.SkipToken,
		PrincipalFolder:     cfg.Processing.PrincipalFolder,
		NotificationsFolder: cfg.Processing.NotificationsFolder,
		AcceptancePrefix:    cfg.Processing.AcceptancePrefix,
		TemplateExtension:   cfg.Processing.TemplateExtension,
	}
	return processor.New(extractor.New(logger), generator.New(m, logger), opts, logger)
}

// ExecuteBatch validates args, runs the batch and writes the optional report.
// A root that cannot be found is reported before any case is processed.
func ExecuteBatch(ctx context.Context, cfg *config.Config, logger *zap.Logger, args RunArgs, out io.Writer) (domain.BatchResult, error) {
	args.Resolve(cfg)
	if err := args.Validate(); err != nil {
		return domain.BatchResult{}, err
	}

	result := NewPipeline(cfg, logger).RunBatch(ctx, args.Root)
	PrintSummary(out, result)

	if args.Report != "" {
		if err := report.Write(args.Report, result, logger); err != nil {
			return result, fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(out, "Reporte: %s\n", args.Report)
	}
	return result, ctx.Err()
}

// PrintSummary writes the batch counts and the failed cases.
func PrintSummary(out io.Writer, result domain.BatchResult) {
	fmt.Fprintf(out, "Procesados: %d\nOmitidos: %d\nFallidos: %d\n", result.Processed, result.Skipped, result.Failed)
	for _, c := range result.Cases {
		if c.Status == domain.StatusFailed {
			fmt.Fprintf(out, "  %s: %s\n", c.Name, c.Reason)
		}
	}
}
