package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, name := range []string{EnvExpedientes, EnvFormatos, EnvOperadores, EnvLogLevel, EnvLogDir} {
		t.Setenv(name, "")
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
paths:
  expedientes: /datos/expedientes
  formatos: /datos/formatos
logging:
  level: debug
  json: true
processing:
  skip_token: " ADMIN "
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/datos/expedientes", cfg.Paths.Expedientes)
	assert.Equal(t, "/datos/formatos", cfg.Paths.Formatos)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
	assert.True(t, cfg.Logging.Console, "unset keys keep their default")
	assert.Equal(t, " ADMIN ", cfg.Processing.SkipToken)
	assert.Equal(t, "01. CUADERNO PRINCIPAL", cfg.Processing.PrincipalFolder)
	assert.Equal(t, "Aceptación de solicitud", cfg.Processing.AcceptancePrefix)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvExpedientes, "/env/expedientes")
	t.Setenv(EnvFormatos, "/env/formatos")
	t.Setenv(EnvOperadores, "/env/operadores.json")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLogDir, "/env/logs")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths:\n  formatos: /file/formatos\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, PathsConfig{
		Expedientes: "/env/expedientes",
		Formatos:    "/env/formatos",
		MappingFile: "/env/operadores.json",
		Logs:        "/env/logs",
	}, cfg.Paths)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"level is case insensitive", func(c *Config) { c.Logging.Level = "DEBUG" }, ""},
		{"empty formatos", func(c *Config) { c.Paths.Formatos = "" }, "paths.formatos must not be empty"},
		{"blank skip token", func(c *Config) { c.Processing.SkipToken = "   " }, "processing.skip_token must not be empty"},
		{"unknown level", func(c *Config) { c.Logging.Level = "verbose" }, `logging.level "verbose"`},
		{"extension without dot", func(c *Config) { c.Processing.TemplateExtension = "docx" }, "must start with a dot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Paths.Formatos = ""
	cfg.Processing.AcceptancePrefix = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paths.formatos")
	assert.Contains(t, err.Error(), "processing.acceptance_prefix")
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	cfg.Paths.Expedientes = "/casos"
	cfg.Report.Path = "reporte.xlsx"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
