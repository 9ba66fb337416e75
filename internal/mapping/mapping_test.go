package mapping

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/allanpk716/expediente_notifier/internal/domain"
	"github.com/allanpk716/expediente_notifier/pkg/docx/docxtest"
)

func writeTemplate(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, docxtest.Write(path, docxtest.Lines(lines...)...))
	return path
}

func mappingOf(entries ...Entry) *Mapping {
	m := newMapping(OriginSidecar, zap.NewNop())
	for _, e := range entries {
		m.add(e.Operator, e.TemplatePath, true)
	}
	return m
}

func TestResolve(t *testing.T) {
	m := mappingOf(
		Entry{"DIANA PATRICIA MANGA GUERRERO", "/f/diana.docx"},
		Entry{"CARLOS MEJIA", "/f/carlos.docx"},
		Entry{"CARLOS MEJIA ROJAS", "/f/carlos_rojas.docx"},
	)

	tests := []struct {
		name     string
		query    string
		wantPath string
		wantKind domain.MatchKind
		found    bool
	}{
		{"exact", "CARLOS MEJIA ROJAS", "/f/carlos_rojas.docx", domain.MatchExact, true},
		{"key contained in query", "DRA DIANA PATRICIA MANGA GUERRERO OPERADORA", "/f/diana.docx", domain.MatchSubstring, true},
		{"query contained in key", "MANGA GUERRERO", "/f/diana.docx", domain.MatchSubstring, true},
		{"first entry in table order wins", "CARLOS", "/f/carlos.docx", domain.MatchSubstring, true},
		{"surrounding blanks ignored", "  CARLOS MEJIA  ", "/f/carlos.docx", domain.MatchExact, true},
		{"no match", "PEDRO PEREZ", "", "", false},
		{"empty query", "   ", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, ok := m.Resolve(tt.query)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.wantPath, match.TemplatePath)
			assert.Equal(t, tt.wantKind, match.Kind)
		})
	}
}

func TestResolve_ExactBeatsEarlierPartial(t *testing.T) {
	m := mappingOf(
		Entry{"CARLOS MEJIA", "/f/carlos.docx"},
		Entry{"CARLOS MEJIA ROJAS", "/f/carlos_rojas.docx"},
	)
	match, ok := m.Resolve("CARLOS MEJIA ROJAS")
	require.True(t, ok)
	assert.Equal(t, "CARLOS MEJIA ROJAS", match.Operator)
}

func TestResolve_DecomposedAccents(t *testing.T) {
	m := mappingOf(Entry{"JOSÉ MARÍA ÁLVAREZ", "/f/jose.docx"})
	match, ok := m.Resolve("JOSE\u0301 MARI\u0301A A\u0301LVAREZ")
	require.True(t, ok)
	assert.Equal(t, domain.MatchExact, match.Kind)
}

func TestResolve_LogsPartialMatch(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := newMapping(OriginSidecar, zap.New(core))
	m.add("DIANA PATRICIA MANGA GUERRERO", "/f/diana.docx", true)

	_, ok := m.Resolve("MANGA GUERRERO")
	require.True(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("operator resolved by partial name").Len())
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "B_diana.docx", "Señores", "**Deudor:**", "DIANA PATRICIA MANGA GUERRERO", "OTRO NOMBRE EN MAYUSCULAS")
	writeTemplate(t, dir, "A_carlos.DOCX", "CARLOS ANDRÉS MEJÍA", "**Radicado:**")
	writeTemplate(t, dir, "C_sin_nombre.docx", "Señores", "sin firma")
	writeTemplate(t, dir, "D_duplicado.docx", "DIANA PATRICIA MANGA GUERRERO")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "~$B_diana.docx"), []byte("lock"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notas.txt"), []byte("CARLOS ANDRÉS MEJÍA"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roto.docx"), []byte("not a zip"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.docx"), 0755))

	core, logs := observer.New(zapcore.InfoLevel)
	m, err := Build(dir, "", zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, OriginScan, m.Origin())
	assert.Equal(t, []Entry{
		{"CARLOS ANDRÉS MEJÍA", filepath.Join(dir, "A_carlos.DOCX")},
		{"DIANA PATRICIA MANGA GUERRERO", filepath.Join(dir, "B_diana.docx")},
	}, m.Entries())

	assert.Equal(t, 1, logs.FilterMessage("no operator name in template").Len())
	assert.Equal(t, 1, logs.FilterMessage("operator already mapped, template ignored").Len())
	assert.Equal(t, 1, logs.FilterMessage("cannot read template").Len())
}

func TestBuild_SignatureWithLineBreak(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "diana.docx", "Señores", "DIANA PATRICIA MANGA GUERRERO\nCONCILIADORA EN INSOLVENCIA")

	m, err := Build(dir, ".docx", nil)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"DIANA PATRICIA MANGA GUERRERO", filepath.Join(dir, "diana.docx")}}, m.Entries())
}

func TestBuild_MissingFolder(t *testing.T) {
	m, err := Build(filepath.Join(t.TempDir(), "nope"), ".docx", nil)
	require.Error(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, OriginEmpty, m.Origin())
}

func TestDiscoverOperator_ForwardScan(t *testing.T) {
	assert.Equal(t, "PRIMER NOMBRE LARGO", discoverOperator([]string{"texto", "PRIMER NOMBRE LARGO", "SEGUNDO NOMBRE LARGO"}))
	assert.Equal(t, "", discoverOperator([]string{"Señores", "CORTO"}))
}

func TestSaveAndLoad(t *testing.T) {
	formats := t.TempDir()
	outside := filepath.Join(t.TempDir(), "externo.docx")
	m := mappingOf(
		Entry{"ZOILA ÑAÑEZ & ASOCIADOS", filepath.Join(formats, "zoila.docx")},
		Entry{"ANA MARÍA RUIZ", filepath.Join(formats, "sub", "ana.docx")},
		Entry{"EXTERNO", outside},
	)

	sidecar := filepath.Join(t.TempDir(), "config", "operadores.json")
	require.NoError(t, m.Save(sidecar, formats))

	raw, err := os.ReadFile(sidecar)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, `"ZOILA ÑAÑEZ & ASOCIADOS": "zoila.docx"`)
	assert.Contains(t, text, `"ANA MARÍA RUIZ": "sub/ana.docx"`)
	assert.True(t, strings.Index(text, "ZOILA") < strings.Index(text, "ANA MARÍA"), "table order kept")
	assert.Contains(t, text, "\n    \"")

	loaded, err := Load(sidecar, formats, nil)
	require.NoError(t, err)
	assert.Equal(t, m.Entries(), loaded.Entries())
	assert.Equal(t, OriginSidecar, loaded.Origin())
}

func TestSave_Empty(t *testing.T) {
	sidecar := filepath.Join(t.TempDir(), "operadores.json")
	require.NoError(t, newMapping(OriginScan, nil).Save(sidecar, t.TempDir()))

	loaded, err := Load(sidecar, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
}

func TestLoad_KeepsFileOrder(t *testing.T) {
	sidecar := filepath.Join(t.TempDir(), "operadores.json")
	require.NoError(t, os.WriteFile(sidecar, []byte(`{
		"ZULMA TORRES": "z.docx",
		"ADRIANA LOPEZ": "/abs/a.docx",
		"MARTA GIL": "m.docx"
	}`), 0644))

	m, err := Load(sidecar, "/formatos", nil)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{"ZULMA TORRES", filepath.Join("/formatos", "z.docx")},
		{"ADRIANA LOPEZ", "/abs/a.docx"},
		{"MARTA GIL", filepath.Join("/formatos", "m.docx")},
	}, m.Entries())
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":   "operadores",
		"array":      `["a"]`,
		"non string": `{"A": 1}`,
		"truncated":  `{"A": "a.docx"`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			sidecar := filepath.Join(t.TempDir(), "operadores.json")
			require.NoError(t, os.WriteFile(sidecar, []byte(body), 0644))
			_, err := Load(sidecar, "", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMappingLoad)
		})
	}
}

func TestLoadOrBuild_RebuildsAndPersists(t *testing.T) {
	formats := t.TempDir()
	writeTemplate(t, formats, "diana.docx", "DIANA PATRICIA MANGA GUERRERO")
	sidecar := filepath.Join(t.TempDir(), "data", "operadores.json")

	m := LoadOrBuild(Source{FormatsDir: formats, SidecarPath: sidecar}, nil)
	assert.Equal(t, OriginScan, m.Origin())
	assert.Equal(t, 1, m.Len())

	raw, err := os.ReadFile(sidecar)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"DIANA PATRICIA MANGA GUERRERO": "diana.docx"`)

	again := LoadOrBuild(Source{FormatsDir: formats, SidecarPath: sidecar}, nil)
	assert.Equal(t, OriginSidecar, again.Origin())
	assert.Equal(t, m.Entries(), again.Entries())
}

func TestLoadOrBuild_CorruptSidecarRebuilds(t *testing.T) {
	formats := t.TempDir()
	writeTemplate(t, formats, "diana.docx", "DIANA PATRICIA MANGA GUERRERO")
	sidecar := filepath.Join(t.TempDir(), "operadores.json")
	require.NoError(t, os.WriteFile(sidecar, []byte("{roto"), 0644))

	core, logs := observer.New(zapcore.DebugLevel)
	m := LoadOrBuild(Source{FormatsDir: formats, SidecarPath: sidecar}, zap.New(core))

	assert.Equal(t, OriginScan, m.Origin())
	assert.Equal(t, 1, m.Len())
	require.Equal(t, 1, logs.FilterMessage("cannot load operator mapping, rebuilding from formats folder").Len())
	assert.Equal(t, "mapping", logs.All()[0].LoggerName)
}

func TestLoadOrBuild_NothingAvailable(t *testing.T) {
	m := LoadOrBuild(Source{
		FormatsDir:  filepath.Join(t.TempDir(), "missing"),
		SidecarPath: filepath.Join(t.TempDir(), "operadores.json"),
	}, nil)
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Len())
	_, ok := m.Resolve("CUALQUIERA")
	assert.False(t, ok)
}

func TestOverlaps(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := newMapping(OriginScan, zap.New(core))
	m.add("CARLOS MEJIA", "/a", false)
	m.add("ANA RUIZ", "/b", false)
	m.add("CARLOS MEJIA ROJAS", "/c", false)

	assert.Equal(t, [][2]string{{"CARLOS MEJIA", "CARLOS MEJIA ROJAS"}}, m.Overlaps())
	m.reportOverlaps()
	assert.Equal(t, 1, logs.FilterMessage("overlapping operator names").Len())
}
