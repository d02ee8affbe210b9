package compare

import (
	"fmt"
	"math"
	"testing"

	"wsntrace/pkg/models"
)

func rootReceiverPairs() []models.PairKey {
	return []models.PairKey{
		{Source: "1", Destination: "2"}, {Source: "1", Destination: "3"}, {Source: "1", Destination: "4"},
		{Source: "2", Destination: "1"}, {Source: "3", Destination: "1"}, {Source: "4", Destination: "1"},
	}
}

func TestCompareWorkedExample(t *testing.T) {
	c := New(Config{MaliciousNode: "5", RootReceiverPairs: rootReceiverPairs()})
	baseline := []models.PairCount{{Source: "1", Destination: "2", Count: 10}, {Source: "3", Destination: "4", Count: 5}}
	attack := []models.PairCount{{Source: "1", Destination: "2", Count: 6}, {Source: "5", Destination: "6", Count: 3}}

	got := c.Compare(baseline, attack)
	if got.TotalPairs != 3 || len(got.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got.Rows))
	}

	want := []struct {
		src, dst string
		base     int
		att      int
		label    string
		bucket   string
	}{
		{"1", "2", 10, 6, "-40.0%", models.BucketRootReceiver},
		{"3", "4", 5, 0, "-100.0%", models.BucketOther},
		{"5", "6", 0, 3, models.NewTrafficLabel, models.BucketMalicious},
	}
	for i, w := range want {
		r := got.Rows[i]
		if r.Source != w.src || r.Destination != w.dst || r.CountBaseline != w.base || r.CountAttack != w.att {
			t.Fatalf("row %d: unexpected counts %+v", i, r)
		}
		if r.Label() != w.label {
			t.Fatalf("row %d: expected label %q, got %q", i, w.label, r.Label())
		}
		if r.Bucket != w.bucket {
			t.Fatalf("row %d: expected bucket %s, got %s", i, w.bucket, r.Bucket)
		}
	}
	if !got.Rows[2].NewTraffic || got.Rows[2].LossPct != nil {
		t.Fatalf("zero-baseline row must be flagged without a percentage: %+v", got.Rows[2])
	}
	if math.Abs(got.MaliciousSharePct-100.0/3) > 1e-9 {
		t.Fatalf("expected malicious share 33.3%%, got %f", got.MaliciousSharePct)
	}
	if fmt.Sprintf("%.1f", got.MaliciousSharePct) != "33.3" {
		t.Fatalf("unexpected formatted share %.1f", got.MaliciousSharePct)
	}
}

func TestCompareOuterJoinCompleteness(t *testing.T) {
	c := New(Config{MaliciousNode: "11"})
	baseline := []models.PairCount{
		{Source: "2", Destination: "1", Count: 4},
		{Source: "7", Destination: "3", Count: 1},
		{Source: "2", Destination: "1", Count: 1},
	}
	attack := []models.PairCount{
		{Source: "7", Destination: "3", Count: 2},
		{Source: "11", Destination: "1", Count: 8},
	}

	got := c.Compare(baseline, attack)
	seen := make(map[models.PairKey]int)
	for _, r := range got.Rows {
		seen[r.Key()]++
	}
	for _, k := range []models.PairKey{{Source: "2", Destination: "1"}, {Source: "7", Destination: "3"}, {Source: "11", Destination: "1"}} {
		if seen[k] != 1 {
			t.Fatalf("pair %s appears %d times", k, seen[k])
		}
	}
	if len(got.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got.Rows))
	}
	for _, r := range got.Rows {
		if r.Source == "2" && r.CountBaseline != 5 {
			t.Fatalf("duplicate baseline pairs should be summed, got %d", r.CountBaseline)
		}
		if r.Source == "7" && r.Label() != "+100.0%" {
			t.Fatalf("expected +100.0%% gain, got %s", r.Label())
		}
	}
}

func TestCompareDropsPairsSilentInBothRuns(t *testing.T) {
	c := New(Config{MaliciousNode: "11"})
	baseline := []models.PairCount{
		{Source: "1", Destination: "2", Count: 0},
		{Source: "3", Destination: "4", Count: 0},
		{Source: "5", Destination: "6", Count: 2},
	}
	attack := []models.PairCount{
		{Source: "1", Destination: "2", Count: 0},
		{Source: "3", Destination: "4", Count: 1},
		{Source: "7", Destination: "8", Count: 0},
	}

	got := c.Compare(baseline, attack)
	if len(got.Rows) != 2 || got.TotalPairs != 2 {
		t.Fatalf("expected 2 rows, got %+v", got.Rows)
	}
	for _, r := range got.Rows {
		if r.CountBaseline == 0 && r.CountAttack == 0 {
			t.Fatalf("zero/zero pair kept: %+v", r)
		}
	}
	if r := got.Rows[0]; r.Key().String() != "3 -> 4" || r.Label() != models.NewTrafficLabel {
		t.Fatalf("expected 3 -> 4 as new traffic, got %+v", r)
	}
}

func TestCompareBucketsAreExclusiveWithMaliciousPrecedence(t *testing.T) {
	c := New(Config{
		MaliciousNode:     "1",
		RootReceiverPairs: []models.PairKey{{Source: "1", Destination: "2"}, {Source: "3", Destination: "4"}},
	})
	counts := []models.PairCount{
		{Source: "1", Destination: "2", Count: 1},
		{Source: "3", Destination: "4", Count: 1},
		{Source: "5", Destination: "6", Count: 1},
	}
	got := c.Compare(counts, counts)

	if len(got.Malicious)+len(got.RootReceiver)+len(got.Other) != len(got.Rows) {
		t.Fatalf("buckets do not partition rows: %+v", got)
	}
	if len(got.Malicious) != 1 || !got.Malicious[0].IsRootReceiverPair {
		t.Fatalf("pair matching both predicates must be bucketed as malicious: %+v", got.Malicious)
	}
	if len(got.RootReceiver) != 1 || got.RootReceiver[0].Source != "3" {
		t.Fatalf("unexpected root-receiver bucket: %+v", got.RootReceiver)
	}
	if len(got.Other) != 1 || got.Other[0].Source != "5" {
		t.Fatalf("unexpected other bucket: %+v", got.Other)
	}
}

func TestInvolvesMaliciousMatchModes(t *testing.T) {
	sub := New(Config{MaliciousNode: "11"})
	exact := New(Config{MaliciousNode: "11", Match: MatchExact})
	k := models.PairKey{Source: "110", Destination: "2"}

	if !sub.InvolvesMalicious(k) {
		t.Fatalf("substring mode should match 110")
	}
	if exact.InvolvesMalicious(k) {
		t.Fatalf("exact mode should not match 110")
	}
	if !exact.InvolvesMalicious(models.PairKey{Source: "2", Destination: "11"}) {
		t.Fatalf("exact mode should match destination 11")
	}
	if New(Config{}).InvolvesMalicious(k) {
		t.Fatalf("empty malicious node must never match")
	}
}

func TestCompareEmptyInputs(t *testing.T) {
	got := New(Config{MaliciousNode: "11"}).Compare(nil, nil)
	if got.TotalPairs != 0 || got.MaliciousSharePct != 0 {
		t.Fatalf("expected empty comparison, got %+v", got)
	}
}

func TestParseMatchMode(t *testing.T) {
	if m, err := ParseMatchMode("EXACT"); err != nil || m != MatchExact {
		t.Fatalf("expected exact, got %q %v", m, err)
	}
	if _, err := ParseMatchMode("regex"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestCompareTags(t *testing.T) {
	got := CompareTags(
		map[string]int{"sent": 10, "forwarded": 8},
		map[string]int{"sent": 10, "forwarded": 3, "dropped": 1},
	)
	if len(got) != 3 || got[0].Tag != "dropped" || got[1].Tag != "forwarded" || got[2].Tag != "sent" {
		t.Fatalf("unexpected tag order: %+v", got)
	}
	if got[1].Delta != -5 || got[0].Baseline != 0 {
		t.Fatalf("unexpected deltas: %+v", got)
	}
}
