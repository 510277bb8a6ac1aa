package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

// ReadCSVRows reads every record from r into CSV rows. With hasHeader the first
// record names the columns, otherwise columns are named col_0, col_1, ...
// Blank lines are skipped; short records leave missing columns unset.
func ReadCSVRows(ctx context.Context, r io.Reader, delimiter rune, hasHeader bool) ([]domain.CSVRow, error) {
	csvReader := csv.NewReader(r)
	csvReader.Comma = delimiter
	csvReader.FieldsPerRecord = -1 // Read all fields
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true

	var headers []string
	if hasHeader {
		h, err := csvReader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// empty file
				return []domain.CSVRow{}, nil
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
		headers = CleanHeaders(h)
	}

	rows := []domain.CSVRow{}
	for {
		// allow cancellation
		select {
		case <-ctx.Done():
			return rows, ctx.Err()
		default:
		}

		rec, err := csvReader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// csv.ParseError carries the line number
			return rows, fmt.Errorf("read data row %d: %w", len(rows)+1, err)
		}

		row := make(domain.CSVRow, len(rec))
		for i, v := range rec {
			row[columnName(headers, i)] = strings.TrimSpace(v)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// CleanHeaders lower cases, trims & snake cases header names. Blank headers get
// positional names.
func CleanHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		h = strings.ToLower(h)
		h = strings.Join(strings.Fields(h), "_")
		if h == "" {
			h = fmt.Sprintf("col_%d", i)
		}
		out[i] = h
	}
	return out
}

func columnName(headers []string, i int) string {
	if i < len(headers) {
		return headers[i]
	}
	return fmt.Sprintf("col_%d", i)
}
