// Package cmd holds the command line interface of the notifier.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/allanpk716/expediente_notifier/internal/config"
	"github.com/allanpk716/expediente_notifier/internal/logging"
)

const (
	AppName = "expediente-notifier"
)

// AppVersion is set at build time with -ldflags "-X ...".
var AppVersion = "dev"

// app carries what every subcommand needs once the root command has run its
// pre-run hook.
type app struct {
	configPath string
	verbose    bool

	cfg      *config.Config
	logger   *zap.Logger
	closeLog func() error
}

// newRootCommand builds the command tree. The returned app must be closed
// once the command has run.
func newRootCommand() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   AppName,
		Short: "Generate creditor notifications for a folder of insolvency case files",
		Long: `expediente-notifier walks a folder of case files, reads each case's
acceptance document, and writes the notification for it from the
operator's template.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newRunCommand(a),
		newExtractCommand(a),
		newMappingCommand(a),
		newVersionCommand(),
	)
	return root, a
}

// Execute runs the command line with ctx.
func Execute(ctx context.Context) error {
	root, a := newRootCommand()
	defer a.close()
	return root.ExecuteContext(ctx)
}

// close flushes and closes the log file, if one was opened.
func (a *app) close() {
	if a.closeLog != nil {
		_ = a.closeLog()
		a.closeLog = nil
	}
}

// setup loads and validates the configuration and builds the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := cfg.Logging.Level
	if a.verbose {
		level = "debug"
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:   level,
		Console: cfg.Logging.Console,
		JSON:    cfg.Logging.JSON,
		Dir:     cfg.Paths.Logs,
		Name:    cfg.Logging.Name,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.closeLog = closeLog
	logger.Debug("configuration loaded", zap.String("config", a.configPath))
	return nil
}

// newVersionCommand builds "version".
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", AppName, AppVersion)
		},
	}
}
