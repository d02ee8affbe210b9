package models

import "time"

// EventTag labels a mote record matched by a tagging rule.
type EventTag struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// TagDelta compares how often a tag fired in each run.
type TagDelta struct {
	Tag      string `json:"tag"`
	Baseline int    `json:"baseline"`
	Attack   int    `json:"attack"`
	Delta    int    `json:"delta"`
}

// Report is the payload handed to report sinks after a comparison.
type Report struct {
	GeneratedAt   time.Time  `json:"generated_at"`
	BaselineRun   string     `json:"baseline_run"`
	AttackRun     string     `json:"attack_run"`
	MaliciousNode string     `json:"malicious_node"`
	Comparison    Comparison `json:"comparison"`
	TagDeltas     []TagDelta `json:"tag_deltas,omitempty"`
}

// RankedReport lists one run's pair counts, busiest pair first.
type RankedReport struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Run         string      `json:"run"`
	TotalRows   int         `json:"total_rows"`
	Pairs       []PairCount `json:"pairs"`
}
