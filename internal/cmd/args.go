package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/allanpk716/expediente_notifier/internal/config"
)

// ErrRootNotFound is returned before a batch starts when the case folder
// root does not exist or is not a directory.
var ErrRootNotFound = errors.New("case folder root not found")

// RunArgs are the arguments of the run command.
type RunArgs struct {
	Root   string
	Report string
}

// Resolve fills empty arguments from the configuration.
func (a *RunArgs) Resolve(cfg *config.Config) {
	if a.Root == "" {
		a.Root = cfg.Paths.Expedientes
	}
	if a.Report == "" {
		a.Report = cfg.Report.Path
	}
}

// Validate checks the arguments before any case is touched.
func (a *RunArgs) Validate() error {
	if strings.TrimSpace(a.Root) == "" {
		return fmt.Errorf("%w: no root given (use --root or paths.expedientes)", ErrRootNotFound)
	}
	info, err := os.Stat(a.Root)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRootNotFound, a.Root)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, a.Root)
	}
	if a.Report != "" && !strings.EqualFold(filepath.Ext(a.Report), ".xlsx") {
		return fmt.Errorf("report file %s must have the .xlsx extension", a.Report)
	}
	return nil
}
