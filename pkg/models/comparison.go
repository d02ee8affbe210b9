package models

import (
	"fmt"
	"math"
)

// Bucket names for comparison rows.
const (
	BucketMalicious    = "malicious"
	BucketRootReceiver = "root_receiver"
	BucketOther        = "other"
)

// NewTrafficLabel marks a pair only observed in the attack run.
const NewTrafficLabel = "new traffic"

// ComparisonRow aligns one pair's counts across the baseline and attack runs.
type ComparisonRow struct {
	Source             string   `json:"source"`
	Destination        string   `json:"destination"`
	CountBaseline      int      `json:"count_baseline"`
	CountAttack        int      `json:"count_attack"`
	Delta              int      `json:"delta"`
	LossPct            *float64 `json:"loss_pct,omitempty"`
	NewTraffic         bool     `json:"new_traffic"`
	InvolvesMalicious  bool     `json:"involves_malicious"`
	IsRootReceiverPair bool     `json:"is_root_receiver_pair"`
	Bucket             string   `json:"bucket"`
}

// Key returns the row's pair key.
func (r ComparisonRow) Key() PairKey {
	return PairKey{Source: r.Source, Destination: r.Destination}
}

// Label renders the change as "+12.5%", "-40.0%" or NewTrafficLabel.
func (r ComparisonRow) Label() string {
	if r.NewTraffic || r.LossPct == nil {
		return NewTrafficLabel
	}
	pct := *r.LossPct
	if r.Delta < 0 {
		return fmt.Sprintf("-%.1f%%", math.Abs(pct))
	}
	return fmt.Sprintf("+%.1f%%", pct)
}

// Comparison is the full comparator output.
type Comparison struct {
	Rows              []ComparisonRow `json:"rows"`
	Malicious         []ComparisonRow `json:"malicious"`
	RootReceiver      []ComparisonRow `json:"root_receiver"`
	Other             []ComparisonRow `json:"other"`
	TotalPairs        int             `json:"total_pairs"`
	MaliciousSharePct float64         `json:"malicious_share_pct"`
}
