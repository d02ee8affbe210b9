package compare

import (
	"fmt"
	"sort"
	"strings"

	"wsntrace/internal/aggregate"
	"wsntrace/pkg/models"
)

// MatchMode controls how the malicious node id is matched against pair endpoints.
type MatchMode string

const (
	// MatchSubstring flags an endpoint that contains the node id anywhere.
	MatchSubstring MatchMode = "substring"
	// MatchExact flags an endpoint equal to the node id.
	MatchExact MatchMode = "exact"
)

// Config holds the classification inputs.
type Config struct {
	MaliciousNode     string
	Match             MatchMode
	RootReceiverPairs []models.PairKey
}

// Comparator aligns two runs' pair counts and classifies each pair.
type Comparator struct {
	malicious    string
	match        MatchMode
	rootReceiver map[models.PairKey]struct{}
}

// ParseMatchMode validates a match mode name.
func ParseMatchMode(name string) (MatchMode, error) {
	switch m := MatchMode(strings.ToLower(strings.TrimSpace(name))); m {
	case "":
		return MatchSubstring, nil
	case MatchSubstring, MatchExact:
		return m, nil
	default:
		return "", fmt.Errorf("unknown match mode %q", name)
	}
}

// New creates a comparator.
func New(cfg Config) *Comparator {
	if cfg.Match == "" {
		cfg.Match = MatchSubstring
	}
	rr := make(map[models.PairKey]struct{}, len(cfg.RootReceiverPairs))
	for _, k := range cfg.RootReceiverPairs {
		rr[models.PairKey{Source: models.NormalizeID(k.Source), Destination: models.NormalizeID(k.Destination)}] = struct{}{}
	}
	return &Comparator{
		malicious:    models.NormalizeID(cfg.MaliciousNode),
		match:        cfg.Match,
		rootReceiver: rr,
	}
}

// InvolvesMalicious reports whether either endpoint matches the malicious node.
func (c *Comparator) InvolvesMalicious(k models.PairKey) bool {
	if c.malicious == "" {
		return false
	}
	if c.match == MatchExact {
		return k.Source == c.malicious || k.Destination == c.malicious
	}
	return strings.Contains(k.Source, c.malicious) || strings.Contains(k.Destination, c.malicious)
}

// IsRootReceiver reports whether the pair is on the root-receiver whitelist.
func (c *Comparator) IsRootReceiver(k models.PairKey) bool {
	_, ok := c.rootReceiver[k]
	return ok
}

// Compare outer-joins baseline and attack counts on (source, destination).
// A pair missing on one side counts zero there; a pair with zero packets in
// both runs is dropped. Rows are sorted by source, then destination.
func (c *Comparator) Compare(baseline, attack []models.PairCount) models.Comparison {
	base := aggregate.Index(baseline)
	att := aggregate.Index(attack)

	keys := make([]models.PairKey, 0, len(base)+len(att))
	for k, n := range base {
		if n > 0 || att[k] > 0 {
			keys = append(keys, k)
		}
	}
	for k, n := range att {
		if _, ok := base[k]; !ok && n > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Source != keys[j].Source {
			return keys[i].Source < keys[j].Source
		}
		return keys[i].Destination < keys[j].Destination
	})

	out := models.Comparison{Rows: make([]models.ComparisonRow, 0, len(keys))}
	for _, k := range keys {
		row := c.row(k, base[k], att[k])
		out.Rows = append(out.Rows, row)
		switch row.Bucket {
		case models.BucketMalicious:
			out.Malicious = append(out.Malicious, row)
		case models.BucketRootReceiver:
			out.RootReceiver = append(out.RootReceiver, row)
		default:
			out.Other = append(out.Other, row)
		}
	}

	out.TotalPairs = len(out.Rows)
	if out.TotalPairs > 0 {
		out.MaliciousSharePct = float64(len(out.Malicious)) / float64(out.TotalPairs) * 100
	}
	return out
}

func (c *Comparator) row(k models.PairKey, baseline, attack int) models.ComparisonRow {
	row := models.ComparisonRow{
		Source:             k.Source,
		Destination:        k.Destination,
		CountBaseline:      baseline,
		CountAttack:        attack,
		Delta:              attack - baseline,
		InvolvesMalicious:  c.InvolvesMalicious(k),
		IsRootReceiverPair: c.IsRootReceiver(k),
	}
	if baseline > 0 {
		pct := float64(row.Delta) / float64(baseline) * 100
		row.LossPct = &pct
	} else {
		row.NewTraffic = true
	}

	switch {
	case row.InvolvesMalicious:
		row.Bucket = models.BucketMalicious
	case row.IsRootReceiverPair:
		row.Bucket = models.BucketRootReceiver
	default:
		row.Bucket = models.BucketOther
	}
	return row
}
