package models

import "testing"

func TestNormalizeIDCollapsesIntegralFloats(t *testing.T) {
	cases := map[string]string{
		" 11 ":     "11",
		"11.0":     "11",
		"3.5":      "3.5",
		"fd00::1":  "fd00::1",
		"10.0.0.1": "10.0.0.1",
		"":         "",
	}
	for in, want := range cases {
		if got := NormalizeID(in); got != want {
			t.Fatalf("NormalizeID(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestMoteRecordNodeID(t *testing.T) {
	m := MoteRecord{MoteID: "ID:12"}
	if got := m.NodeID(); got != "12" {
		t.Fatalf("expected 12, got %q", got)
	}
}

func TestComparisonRowLabel(t *testing.T) {
	loss := -40.0
	gain := 25.0
	zero := 0.0
	cases := []struct {
		row  ComparisonRow
		want string
	}{
		{ComparisonRow{Delta: -4, LossPct: &loss}, "-40.0%"},
		{ComparisonRow{Delta: 1, LossPct: &gain}, "+25.0%"},
		{ComparisonRow{Delta: 0, LossPct: &zero}, "+0.0%"},
		{ComparisonRow{Delta: 3, NewTraffic: true}, NewTrafficLabel},
	}
	for _, tc := range cases {
		if got := tc.row.Label(); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}
