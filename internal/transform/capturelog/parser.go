package capturelog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"wsntrace/internal/logger"
	"wsntrace/pkg/models"
)

// Skip reasons reported in Result.Skipped.
const (
	ReasonTooFewFields           = "too_few_fields"
	ReasonPlaceholderDestination = "placeholder_destination"
	ReasonEmptyDestination       = "empty_destination"
)

// Result is the outcome of parsing one capture log.
type Result struct {
	Records   []models.CaptureRecord
	LinesRead int
	Skipped   map[string]int
}

// SkippedTotal returns the number of dropped lines across all reasons.
func (r *Result) SkippedTotal() int {
	total := 0
	for _, n := range r.Skipped {
		total += n
	}
	return total
}

func newResult() *Result {
	return &Result{
		Records: make([]models.CaptureRecord, 0, 1024),
		Skipped: make(map[string]int, 3),
	}
}

// ParseFile opens and parses a tab-delimited capture log. A missing file is an error.
func ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture log: %w", err)
	}
	defer f.Close()

	res, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse capture log %s: %w", path, err)
	}
	logger.Infof("Capture log parsed: path=%s lines=%d records=%d skipped=%d",
		path, res.LinesRead, len(res.Records), res.SkippedTotal())
	return res, nil
}

// Parse reads timestamp, source, destination and payload columns.
// Lines with fewer than four fields or without a resolved destination are dropped.
func Parse(r io.Reader) (*Result, error) {
	res := newResult()
	s := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	s.Buffer(buf, 8*1024*1024)

	for s.Scan() {
		res.LinesRead++
		line := strings.TrimRight(s.Text(), "\r")
		parts := strings.Split(line, "\t")
		if len(parts) < 4 {
			res.Skipped[ReasonTooFewFields]++
			continue
		}

		dst := strings.TrimSpace(parts[2])
		switch dst {
		case models.PlaceholderDestination:
			res.Skipped[ReasonPlaceholderDestination]++
			continue
		case "":
			res.Skipped[ReasonEmptyDestination]++
			continue
		}

		res.Records = append(res.Records, models.CaptureRecord{
			Timestamp:   parts[0],
			Source:      models.NormalizeID(parts[1]),
			Destination: models.NormalizeID(dst),
			Payload:     parts[3],
		})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if n := res.SkippedTotal(); n > 0 {
		logger.Debugf("Capture lines dropped: too_few_fields=%d placeholder_destination=%d empty_destination=%d",
			res.Skipped[ReasonTooFewFields], res.Skipped[ReasonPlaceholderDestination], res.Skipped[ReasonEmptyDestination])
	}
	return res, nil
}
