package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/allanpk716/expediente_notifier/internal/extractor"
	"github.com/allanpk716/expediente_notifier/internal/mapping"
	"github.com/allanpk716/expediente_notifier/pkg/docx"
)

// newRunCommand builds "run".
func newRunCommand(a *app) *cobra.Command {
	var args RunArgs
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every case folder under the root",
		Long: `Processes each immediate subfolder of the root as one case file.
Folders whose name contains the skip token are skipped. The root defaults
to paths.expedientes from the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, err := ExecuteBatch(ctx, a.cfg, a.logger, args, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVar(&args.Root, "root", "", "case folder root")
	cmd.Flags().StringVar(&args.Report, "report", "", "write an XLSX batch report to this file")
	return cmd
}

// newExtractCommand builds "extract".
func newExtractCommand(a *app) *cobra.Command {
	var textOnly bool
	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Extract the case fields of one acceptance document",
		Long: `Prints the fields extracted from FILE as JSON. With --text it prints the
document text instead, one line per paragraph followed by the table rows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if textOnly {
				return printDocumentText(cmd, args[0])
			}
			record, err := extractor.New(a.logger).ExtractFile(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(record)
		},
	}
	cmd.Flags().BoolVar(&textOnly, "text", false, "print the document text instead of the fields")
	return cmd
}

// printDocumentText writes the paragraphs and table rows of the document at path.
func printDocumentText(cmd *cobra.Command, path string) error {
	doc, err := docx.Open(path)
	if err != nil {
		return err
	}
	defer doc.Close()
	_, err = fmt.Fprintln(cmd.OutOrStdout(), doc.FullText())
	return err
}

// newMappingCommand builds "mapping" with its show and rebuild subcommands.
func newMappingCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Inspect or rebuild the operator to template mapping",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the operator mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := mapping.LoadOrBuild(mappingSource(a.cfg), a.logger)
			return printMapping(cmd, m)
		},
	}

	rebuild := &cobra.Command{
		Use:   "rebuild",
		Short: "Rescan the templates folder and rewrite the mapping file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src := mappingSource(a.cfg)
			m, err := mapping.Build(src.FormatsDir, src.Extension, a.logger)
			if err != nil {
				return err
			}
			if err := m.Save(src.SidecarPath, src.FormatsDir); err != nil {
				return err
			}
			a.logger.Info("operator mapping saved", zap.String("path", src.SidecarPath), zap.Int("entries", m.Len()))
			return printMapping(cmd, m)
		},
	}

	cmd.AddCommand(show, rebuild)
	return cmd
}

// printMapping writes the mapping entries as an aligned table.
func printMapping(cmd *cobra.Command, m *mapping.Mapping) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "OPERADOR\tPLANTILLA\n")
	for _, e := range m.Entries() {
		fmt.Fprintf(w, "%s\t%s\n", e.Operator, e.TemplatePath)
	}
	fmt.Fprintf(w, "(%d operadores, origen %s)\n", m.Len(), m.Origin())
	return w.Flush()
}
