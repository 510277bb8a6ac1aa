package sources

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

// Error constants and variables
const (
	ErrMsgLocalCSVPathRequired = "local csv: path is required"
	ErrMsgLocalCSVFileNotFound = "local csv: error opening file"
)

var (
	ErrLocalCSVPathRequired = errors.New(ErrMsgLocalCSVPathRequired)
	ErrLocalCSVFileNotFound = errors.New(ErrMsgLocalCSVFileNotFound)
)

const (
	LocalCSVSource = "local-csv-source"
)

// Local CSV source.
type localCSVSource struct {
	path      string
	delimiter rune
	hasHeader bool
}

// Name of the source.
func (s *localCSVSource) Name() string { return LocalCSVSource }

// Close closes the local CSV source.
func (s *localCSVSource) Close(ctx context.Context) error {
	// No resources to close for local CSV source
	return nil
}

// Load reads all rows of the local CSV file.
func (s *localCSVSource) Load(ctx context.Context) ([]domain.CSVRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		log.Println(ErrMsgLocalCSVFileNotFound, err)
		return nil, ErrLocalCSVFileNotFound
	}
	defer f.Close()

	rows, err := ReadCSVRows(ctx, f, s.delimiter, s.hasHeader)
	if err != nil {
		return rows, fmt.Errorf("local csv: %s: %w", s.path, err)
	}
	return rows, nil
}

// Local CSV source config.
type LocalCSVConfig struct {
	Path      string
	Delimiter rune // e.g., ',', '|'
	HasHeader bool
}

// Name of the source.
func (c LocalCSVConfig) Name() string { return LocalCSVSource }

// BuildSource builds a local CSV source from the config.
func (c LocalCSVConfig) BuildSource(ctx context.Context) (domain.ElementSource[domain.CSVRow], error) {
	if c.Path == "" {
		return nil, ErrLocalCSVPathRequired
	}

	if _, err := os.Stat(c.Path); err != nil {
		log.Println(ErrMsgLocalCSVFileNotFound, err)
		return nil, ErrLocalCSVFileNotFound
	}

	delim := c.Delimiter
	if delim == 0 {
		delim = ',' // default
	}

	return &localCSVSource{
		path:      c.Path,
		delimiter: delim,
		hasHeader: c.HasHeader,
	}, nil
}
