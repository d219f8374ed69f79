package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/san-kum/dsmath/internal/experiment"
	"github.com/san-kum/dsmath/internal/sweep"
)

var ErrRunNotFound = errors.New("storage: run not found")

const (
	metadataFile = "metadata.json"
	samplesFile  = "samples.csv"
)

type Store struct {
	baseDir string
	log     *slog.Logger
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.log = logger }
}

func New(baseDir string, opts ...Option) *Store {
	s := &Store{baseDir: baseDir, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string      `json:"id"`
	Function  string      `json:"function"`
	Timestamp time.Time   `json:"timestamp"`
	Points    int         `json:"points"`
	Step      float64     `json:"step"`
	Order     int         `json:"order"`
	Range     sweep.Range `json:"range"`
	Samples   int         `json:"samples"`
	MaxError  []float64   `json:"max_error"`
}

// Save writes a sweep under a fresh run id: metadata as JSON and one CSV
// row per abscissa with the exact and approximated derivatives.
func (s *Store) Save(cfg experiment.Config, r sweep.Range, result *sweep.Result) (string, error) {
	runID := fmt.Sprintf("%s_%s", cfg.Function, uuid.NewString())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Function:  cfg.Function,
		Timestamp: time.Now(),
		Points:    cfg.Points,
		Step:      cfg.Step,
		Order:     cfg.Order,
		Range:     r,
		Samples:   len(result.Samples),
		MaxError:  result.MaxError,
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(runDir, metadataFile), data, 0644); err != nil {
		return "", err
	}

	if err := writeSamples(filepath.Join(runDir, samplesFile), cfg.Order, result.Samples); err != nil {
		return "", err
	}

	s.log.Debug("run saved", "id", runID, "samples", len(result.Samples))
	return runID, nil
}

func writeSamples(path string, order int, samples []experiment.Comparison) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{"x"}
	for n := 0; n <= order; n++ {
		header = append(header, fmt.Sprintf("exact%d", n))
	}
	for n := 0; n <= order; n++ {
		header = append(header, fmt.Sprintf("approx%d", n))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, sample := range samples {
		row := []string{formatFloat(sample.X)}
		for _, v := range sample.Exact {
			row = append(row, formatFloat(v))
		}
		for _, v := range sample.Approx {
			row = append(row, formatFloat(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns the metadata of every readable run, oldest first. Entries
// without valid metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			s.log.Warn("skipping run", "dir", entry.Name(), "err", err)
			continue
		}
		runs = append(runs, *meta)
	}

	slices.SortFunc(runs, func(a, b RunMetadata) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", runID, err)
	}
	return &meta, nil
}

// LoadSamples reads back the comparisons of a run.
func (s *Store) LoadSamples(runID string) ([]experiment.Comparison, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []experiment.Comparison{}, nil
	}

	width := len(records[0])
	if width < 3 || (width-1)%2 != 0 {
		return nil, fmt.Errorf("storage: %s has a malformed header", runID)
	}
	orders := (width - 1) / 2

	samples := make([]experiment.Comparison, 0, len(records)-1)
	for i, record := range records[1:] {
		values := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: %s row %d: %w", runID, i+1, err)
			}
			values[j] = v
		}
		samples = append(samples, experiment.Comparison{
			X:      values[0],
			Exact:  values[1 : 1+orders],
			Approx: values[1+orders:],
		})
	}
	return samples, nil
}
