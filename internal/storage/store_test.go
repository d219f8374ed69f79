package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/san-kum/dsmath/internal/compiler"
	"github.com/san-kum/dsmath/internal/deriv"
	"github.com/san-kum/dsmath/internal/experiment"
	"github.com/san-kum/dsmath/internal/sweep"
)

func runSweep(t *testing.T) (experiment.Config, sweep.Range, *sweep.Result) {
	t.Helper()
	cfg := experiment.Config{Function: "sin", Points: 5, Step: 0.01, Order: 2}
	e, err := experiment.New(experiment.NewRegistry(), compiler.NewRegistry(), cfg)
	require.NoError(t, err)

	r := sweep.Range{From: 0, To: 1, Step: 0.25}
	result, err := sweep.Run(context.Background(), e, r, 2)
	require.NoError(t, err)
	return cfg, r, result
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	cfg, r, result := runSweep(t)
	runID, err := st.Save(cfg, r, result)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	require.Equal(t, "sin", meta.Function)
	require.Equal(t, 5, meta.Points)
	require.Equal(t, r, meta.Range)
	require.Equal(t, 4, meta.Samples)
	require.Equal(t, result.MaxError, meta.MaxError)

	samples, err := st.LoadSamples(runID)
	require.NoError(t, err)
	require.Equal(t, result.Samples, samples)
}

func TestStoreList(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	require.NoError(t, st.Init())

	runs, err := st.List()
	require.NoError(t, err)
	require.Empty(t, runs)

	cfg, r, result := runSweep(t)
	first, err := st.Save(cfg, r, result)
	require.NoError(t, err)
	second, err := st.Save(cfg, r, result)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// directories without metadata are skipped
	require.NoError(t, os.Mkdir(filepath.Join(dir, "stray"), 0755))

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.False(t, runs[1].Timestamp.Before(runs[0].Timestamp))
}

func TestStoreList_MissingDir(t *testing.T) {
	runs, err := New(filepath.Join(t.TempDir(), "absent")).List()
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestStoreFileStructure(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	require.NoError(t, st.Init())

	cfg, r, result := runSweep(t)
	runID, err := st.Save(cfg, r, result)
	require.NoError(t, err)

	require.FileExists(t, filepath.Join(dir, runID, "metadata.json"))
	require.FileExists(t, filepath.Join(dir, runID, "samples.csv"))

	data, err := os.ReadFile(filepath.Join(dir, runID, "samples.csv"))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("x,exact0,exact1,exact2,approx0,approx1,approx2\n")))
}

func TestStoreLoad_NotFound(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Load("nope")
	require.ErrorIs(t, err, ErrRunNotFound)
	_, err = st.LoadSamples("nope")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestExportImportTriples(t *testing.T) {
	reg := compiler.NewRegistry()
	x, err := deriv.Variable(reg.MustCompiler(2, 2), 0, 0.5)
	require.NoError(t, err)
	y, err := deriv.Variable(reg.MustCompiler(2, 2), 1, 2)
	require.NoError(t, err)
	triples := []deriv.Triple{x.Mul(y).Sin().Triple(), y.Exp().Triple()}

	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, ExportTriples(&buf, format, triples))

			back, err := ImportTriples(&buf, format)
			require.NoError(t, err)
			require.Equal(t, triples, back)

			d, err := deriv.FromTriple(compiler.NewRegistry(), back[0])
			require.NoError(t, err)
			require.True(t, d.Equal(x.Mul(y).Sin()))
		})
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	require.ErrorIs(t, ExportTriples(&buf, "xml", nil), ErrUnknownFormat)
	_, err := ImportTriples(&buf, "xml")
	require.ErrorIs(t, err, ErrUnknownFormat)
}
