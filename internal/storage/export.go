package storage

import (
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/dsmath/internal/deriv"
)

var ErrUnknownFormat = errors.New("storage: unknown export format")

// ExportTriples writes structures in their persisted form, as "json" or
// "yaml".
func ExportTriples(w io.Writer, format string, triples []deriv.Triple) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(triples)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(triples)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ImportTriples reads structures written by ExportTriples.
func ImportTriples(r io.Reader, format string) ([]deriv.Triple, error) {
	var triples []deriv.Triple
	switch format {
	case "json":
		if err := json.NewDecoder(r).Decode(&triples); err != nil {
			return nil, err
		}
	case "yaml":
		if err := yaml.NewDecoder(r).Decode(&triples); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return triples, nil
}
