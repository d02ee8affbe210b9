package combiner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"wsntrace/internal/logger"
	"wsntrace/pkg/models"
)

// Strategy selects how mote and capture records are aligned.
type Strategy string

const (
	// Positional pairs row i with row i. The two logs are not time-correlated,
	// so the result is a juxtaposition, not a join.
	Positional Strategy = "positional"
	// Nearest pairs each capture record with the mote record closest in time.
	// A mote already placed on an earlier row is not repeated.
	Nearest Strategy = "nearest"
	// Key pairs each capture record with the next mote record of its source node.
	Key Strategy = "key"
)

// Options tunes time-based alignment.
type Options struct {
	// MaxSkew bounds the time distance for Nearest. Zero means unbounded.
	MaxSkew time.Duration
	// TimeUnit is the unit of bare numeric timestamps: ms, us or s.
	TimeUnit string
}

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case "":
		return Positional, nil
	case Positional, Nearest, Key:
		return s, nil
	default:
		return "", fmt.Errorf("unknown combine strategy %q", name)
	}
}

// Combine merges the two record sequences into one table.
// Every input record appears in the output at least once.
func Combine(motes []models.MoteRecord, captures []models.CaptureRecord, strategy Strategy, opts Options) ([]models.CombinedRecord, error) {
	switch strategy {
	case Positional, "":
		logger.Debugf("Combining %d mote and %d capture records positionally; rows are not time-correlated", len(motes), len(captures))
		return combinePositional(motes, captures), nil
	case Nearest:
		return combineNearest(motes, captures, opts), nil
	case Key:
		return combineKey(motes, captures), nil
	default:
		return nil, fmt.Errorf("unknown combine strategy %q", strategy)
	}
}

func combinePositional(motes []models.MoteRecord, captures []models.CaptureRecord) []models.CombinedRecord {
	n := len(motes)
	if len(captures) > n {
		n = len(captures)
	}
	out := make([]models.CombinedRecord, n)
	for i := 0; i < n; i++ {
		if i < len(motes) {
			out[i].Mote = motes[i]
		}
		if i < len(captures) {
			out[i].Capture = captures[i]
		}
	}
	return out
}

type timedMote struct {
	idx int
	at  time.Duration
}

func combineNearest(motes []models.MoteRecord, captures []models.CaptureRecord, opts Options) []models.CombinedRecord {
	timed := make([]timedMote, 0, len(motes))
	for i, m := range motes {
		if at, ok := ParseTime(m.Time, opts.TimeUnit); ok {
			timed = append(timed, timedMote{idx: i, at: at})
		}
	}
	sort.SliceStable(timed, func(i, j int) bool { return timed[i].at < timed[j].at })

	used := make([]bool, len(motes))
	out := make([]models.CombinedRecord, 0, len(captures)+len(motes))
	unmatched := 0
	for _, c := range captures {
		row := models.CombinedRecord{Capture: c}
		if at, ok := ParseTime(c.Timestamp, opts.TimeUnit); ok {
			// A mote lands on the table once, on its first pairing.
			if j, ok := nearestMote(timed, at, opts.MaxSkew); ok && !used[j] {
				row.Mote = motes[j]
				used[j] = true
			}
		}
		if row.Mote.IsZero() {
			unmatched++
		}
		out = append(out, row)
	}

	out = appendUnused(out, motes, used)
	logger.Debugf("Nearest-time combine: captures=%d unmatched=%d rows=%d", len(captures), unmatched, len(out))
	return out
}

// nearestMote returns the index of the mote closest to at. Ties go to the earlier mote.
func nearestMote(timed []timedMote, at, maxSkew time.Duration) (int, bool) {
	if len(timed) == 0 {
		return 0, false
	}
	pos := sort.Search(len(timed), func(i int) bool { return timed[i].at >= at })

	best := -1
	var bestDist time.Duration
	if pos < len(timed) {
		best = pos
		bestDist = timed[pos].at - at
	}
	if pos > 0 {
		prev := pos - 1
		// Step back to the first mote sharing the previous timestamp.
		for prev > 0 && timed[prev-1].at == timed[prev].at {
			prev--
		}
		if d := at - timed[prev].at; best < 0 || d <= bestDist {
			best = prev
			bestDist = d
		}
	}
	if maxSkew > 0 && bestDist > maxSkew {
		return 0, false
	}
	return timed[best].idx, true
}

func combineKey(motes []models.MoteRecord, captures []models.CaptureRecord) []models.CombinedRecord {
	queues := make(map[string][]int, 16)
	for i, m := range motes {
		id := m.NodeID()
		queues[id] = append(queues[id], i)
	}

	used := make([]bool, len(motes))
	out := make([]models.CombinedRecord, 0, len(captures)+len(motes))
	for _, c := range captures {
		row := models.CombinedRecord{Capture: c}
		if q := queues[c.Source]; len(q) > 0 {
			row.Mote = motes[q[0]]
			used[q[0]] = true
			queues[c.Source] = q[1:]
		}
		out = append(out, row)
	}
	return appendUnused(out, motes, used)
}

func appendUnused(out []models.CombinedRecord, motes []models.MoteRecord, used []bool) []models.CombinedRecord {
	for i, m := range motes {
		if !used[i] {
			out = append(out, models.CombinedRecord{Mote: m})
		}
	}
	return out
}
