package aggregate

import (
	"sort"

	"wsntrace/pkg/models"
)

// Count groups keys by exact (source, destination) and counts each pair.
// Keys missing either endpoint do not contribute. Pairs come out in first-seen order.
func Count(keys []models.PairKey) []models.PairCount {
	index := make(map[models.PairKey]int, 64)
	out := make([]models.PairCount, 0, 64)
	for _, k := range keys {
		if !k.Valid() {
			continue
		}
		if i, ok := index[k]; ok {
			out[i].Count++
			continue
		}
		index[k] = len(out)
		out = append(out, models.PairCount{Source: k.Source, Destination: k.Destination, Count: 1})
	}
	return out
}

// Total sums the counts of a run.
func Total(counts []models.PairCount) int {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	return total
}

// Ranked returns a copy ordered by count descending, then by source and destination.
func Ranked(counts []models.PairCount) []models.PairCount {
	out := make([]models.PairCount, len(counts))
	copy(out, counts)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Destination < out[j].Destination
	})
	return out
}

// Index maps each pair to its count, summing duplicates.
func Index(counts []models.PairCount) map[models.PairKey]int {
	out := make(map[models.PairKey]int, len(counts))
	for _, c := range counts {
		out[c.Key()] += c.Count
	}
	return out
}
