package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"wsntrace/internal/logger"
	"wsntrace/pkg/models"
)

// WriteCSV persists a combined table, replacing any existing file.
func WriteCSV(path string, rows []models.CombinedRecord) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create table directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create table file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := Write(bw, rows); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}
	logger.Infof("Combined table written: path=%s rows=%d", path, len(rows))
	return nil
}

// Write encodes the header and rows as CSV.
func Write(w io.Writer, rows []models.CombinedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.CombinedHeader); err != nil {
		return fmt.Errorf("write table header: %w", err)
	}
	for i, row := range rows {
		if err := cw.Write(row.Columns()); err != nil {
			return fmt.Errorf("write table row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV loads a persisted combined table.
func ReadCSV(path string) ([]models.CombinedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	rows, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", path, err)
	}
	logger.Infof("Combined table loaded: path=%s rows=%d", path, len(rows))
	return rows, nil
}

// Read decodes a combined table by header name. Source and Destination
// columns are required; the other columns are optional.
func Read(r io.Reader) ([]models.CombinedRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("table is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{"Source", "Destination"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	get := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	rows := make([]models.CombinedRecord, 0, 1024)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, models.CombinedRecord{
			Mote: models.MoteRecord{
				Time:    get(rec, "Time"),
				MoteID:  get(rec, "Mote ID"),
				Message: get(rec, "Message"),
			},
			Capture: models.CaptureRecord{
				Timestamp:   get(rec, "Timestamp"),
				Source:      models.NormalizeID(get(rec, "Source")),
				Destination: models.NormalizeID(get(rec, "Destination")),
				Payload:     get(rec, "Data"),
			},
		})
	}
	return rows, nil
}

// PairKeys projects the capture side of each row onto its (source, destination) key.
func PairKeys(rows []models.CombinedRecord) []models.PairKey {
	out := make([]models.PairKey, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Capture.Pair())
	}
	return out
}

// Motes returns the non-empty mote side of each row.
func Motes(rows []models.CombinedRecord) []models.MoteRecord {
	out := make([]models.MoteRecord, 0, len(rows))
	for _, row := range rows {
		if !row.Mote.IsZero() {
			out = append(out, row.Mote)
		}
	}
	return out
}
