package aggregate

import (
	"reflect"
	"testing"

	"wsntrace/pkg/models"
)

func keys(pairs ...string) []models.PairKey {
	out := make([]models.PairKey, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.PairKey{Source: pairs[i], Destination: pairs[i+1]})
	}
	return out
}

func TestCountGroupsExactPairs(t *testing.T) {
	in := keys("1", "2", "2", "1", "1", "2", "1", "2", "A", "b", "a", "b", "", "", "3", "")
	got := Count(in)
	want := []models.PairCount{
		{Source: "1", Destination: "2", Count: 3},
		{Source: "2", Destination: "1", Count: 1},
		{Source: "A", Destination: "b", Count: 1},
		{Source: "a", Destination: "b", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestCountConservesTotal(t *testing.T) {
	in := keys("1", "2", "2", "3", "1", "2", "", "", "4", "1", "4", "1")
	contributing := 0
	for _, k := range in {
		if k.Valid() {
			contributing++
		}
	}
	if got := Total(Count(in)); got != contributing {
		t.Fatalf("expected total %d, got %d", contributing, got)
	}
}

func TestRankedSortsByCountDescending(t *testing.T) {
	in := []models.PairCount{
		{Source: "3", Destination: "1", Count: 2},
		{Source: "1", Destination: "2", Count: 9},
		{Source: "2", Destination: "1", Count: 2},
	}
	got := Ranked(in)
	if got[0].Count != 9 || got[1].Source != "2" || got[2].Source != "3" {
		t.Fatalf("unexpected ranking: %+v", got)
	}
	if in[0].Source != "3" {
		t.Fatalf("Ranked must not reorder its input")
	}
}

func TestIndexSumsDuplicates(t *testing.T) {
	idx := Index([]models.PairCount{
		{Source: "1", Destination: "2", Count: 2},
		{Source: "1", Destination: "2", Count: 3},
	})
	if idx[models.PairKey{Source: "1", Destination: "2"}] != 5 {
		t.Fatalf("expected summed count 5, got %v", idx)
	}
}
