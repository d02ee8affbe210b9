package motelog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"wsntrace/internal/logger"
	"wsntrace/pkg/models"
)

// DefaultMarker identifies node-event lines in a Cooja mote output log.
const DefaultMarker = "ID:"

// Options controls mote log parsing.
type Options struct {
	Marker string
}

// MalformedLineError describes a marker line that cannot become a record.
type MalformedLineError struct {
	Line   int
	Text   string
	Reason string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("mote log line %d: %s", e.Line, e.Reason)
}

// Result is the outcome of parsing one mote log.
type Result struct {
	Records   []models.MoteRecord
	LinesRead int
	Skipped   int
	Malformed []*MalformedLineError
}

// ParseFile opens and parses a mote log. A missing file is an error.
func ParseFile(path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mote log: %w", err)
	}
	defer f.Close()

	res, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("parse mote log %s: %w", path, err)
	}
	logger.Infof("Mote log parsed: path=%s lines=%d records=%d skipped=%d malformed=%d",
		path, res.LinesRead, len(res.Records), res.Skipped, len(res.Malformed))
	return res, nil
}

// Parse reads node-event lines: token 1 is the time, token 3 the mote id,
// tokens 4.. the message. Lines without the marker are skipped.
func Parse(r io.Reader, opts Options) (*Result, error) {
	marker := opts.Marker
	if marker == "" {
		marker = DefaultMarker
	}

	res := &Result{Records: make([]models.MoteRecord, 0, 1024)}
	s := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	s.Buffer(buf, 8*1024*1024)

	for s.Scan() {
		res.LinesRead++
		line := s.Text()
		if !strings.Contains(line, marker) {
			res.Skipped++
			continue
		}

		rec, err := parseLine(line)
		if err != nil {
			malformed := &MalformedLineError{Line: res.LinesRead, Text: line, Reason: err.Error()}
			logger.Debugf("%v", malformed)
			res.Malformed = append(res.Malformed, malformed)
			continue
		}
		res.Records = append(res.Records, rec)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func parseLine(line string) (models.MoteRecord, error) {
	parts := strings.Fields(line)
	if len(parts) < 3 {
		return models.MoteRecord{}, fmt.Errorf("expected at least 3 fields, got %d", len(parts))
	}
	return models.MoteRecord{
		Time:    parts[0],
		MoteID:  parts[2],
		Message: strings.Join(parts[3:], " "),
	}, nil
}
