package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RawBatch is one rectangular batch of untyped rows handed to the
// reconciliation pipeline. Rows keep the column order of the source and the
// values exactly as read; all cleaning happens downstream.
type RawBatch struct {
	Source  string
	Columns []string
	Rows    []map[string]string
}

// ReadCSV parses a CSV stream into a RawBatch. The first row is the header;
// column names are kept verbatim (case-sensitive). Short rows are padded with
// empty strings so every row exposes every column.
func ReadCSV(r io.Reader, source string) (*RawBatch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty input: %s", source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))
	}

	batch := &RawBatch{Source: source, Columns: columns}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(batch.Rows)+2, err)
		}

		row := make(map[string]string, len(columns))
		for i, name := range columns {
			if i < len(record) {
				row[name] = record[i]
			} else {
				row[name] = ""
			}
		}
		batch.Rows = append(batch.Rows, row)
	}

	return batch, nil
}

// ReadCSVFile parses a CSV file into a RawBatch.
func ReadCSVFile(path string) (*RawBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return ReadCSV(f, filepath.Base(path))
}

// ListCSVFiles returns the CSV files directly inside dir, sorted by name so
// repeated scans see a stable order.
func ListCSVFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
