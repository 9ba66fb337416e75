// Package config loads the YAML configuration of the notifier.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "config.yaml"

// Environment variables that override file values.
const (
	EnvExpedientes = "EXPEDIENTES_PATH"
	EnvFormatos    = "FORMATOS_PATH"
	EnvOperadores  = "OPERADORES_FILE"
	EnvLogLevel    = "LOG_LEVEL"
	EnvLogDir      = "LOG_DIR"
)

// Config is the complete configuration file.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Logging    LoggingConfig    `yaml:"logging"`
	Processing ProcessingConfig `yaml:"processing"`
	Report     ReportConfig     `yaml:"report"`
}

// PathsConfig locates the case tree, the templates and the sidecar file.
type PathsConfig struct {
	Expedientes string `yaml:"expedientes"`
	Formatos    string `yaml:"formatos"`
	MappingFile string `yaml:"mapping_file"`
	Logs        string `yaml:"logs"`
}

// LoggingConfig controls the log sinks.
type LoggingConfig struct {
	Level   string `yaml:"level"` // debug | info | warn | error
	Console bool   `yaml:"console"`
	JSON    bool   `yaml:"json"`
	Name    string `yaml:"name"` // log file prefix
}

// ProcessingConfig holds the folder and file naming conventions.
type ProcessingConfig struct {
	SkipToken           string `yaml:"skip_token"`
	PrincipalFolder     string `yaml:"principal_folder"`
	NotificationsFolder string `yaml:"notifications_folder"`
	AcceptancePrefix    string `yaml:"acceptance_prefix"`
	TemplateExtension   string `yaml:"template_extension"`
}

// ReportConfig controls the optional XLSX batch report.
type ReportConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Formatos:    "formatos",
			MappingFile: filepath.Join("config", "operadores.json"),
			Logs:        "logs",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Name:    "procesador",
		},
		Processing: ProcessingConfig{
			SkipToken:           " 00 ",
			PrincipalFolder:     "01. CUADERNO PRINCIPAL",
			NotificationsFolder: "02. NOTIFICACIONES",
			AcceptancePrefix:    "Aceptación de solicitud",
			TemplateExtension:   ".docx",
		},
	}
}

// Load reads path on top of the defaults. A missing file yields the defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides replaces file values with the non-empty environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvExpedientes); v != "" {
		c.Paths.Expedientes = v
	}
	if v := os.Getenv(EnvFormatos); v != "" {
		c.Paths.Formatos = v
	}
	if v := os.Getenv(EnvOperadores); v != "" {
		c.Paths.MappingFile = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogDir); v != "" {
		c.Paths.Logs = v
	}
}

// ValidLevels lists the accepted logging levels.
var ValidLevels = []string{"debug", "info", "warn", "error"}

// Validate reports every required value that is empty or invalid.
func (c *Config) Validate() error {
	var problems []string
	required := []struct {
		name, value string
	}{
		{"paths.formatos", c.Paths.Formatos},
		{"paths.mapping_file", c.Paths.MappingFile},
		{"processing.skip_token", c.Processing.SkipToken},
		{"processing.principal_folder", c.Processing.PrincipalFolder},
		{"processing.notifications_folder", c.Processing.NotificationsFolder},
		{"processing.acceptance_prefix", c.Processing.AcceptancePrefix},
		{"processing.template_extension", c.Processing.TemplateExtension},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			problems = append(problems, r.name+" must not be empty")
		}
	}

	if !isValidLevel(c.Logging.Level) {
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of %v", c.Logging.Level, ValidLevels))
	}
	if ext := c.Processing.TemplateExtension; ext != "" && !strings.HasPrefix(ext, ".") {
		problems = append(problems, fmt.Sprintf("processing.template_extension %q must start with a dot", ext))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// isValidLevel reports whether level is one of ValidLevels, ignoring case.
func isValidLevel(level string) bool {
	for _, l := range ValidLevels {
		if strings.EqualFold(level, l) {
			return true
		}
	}
	return false
}

// Save writes the configuration as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
