package compare

import (
	"sort"

	"wsntrace/pkg/models"
)

// CompareTags aligns per-tag event counts of two runs. Tags are sorted by name.
func CompareTags(baseline, attack map[string]int) []models.TagDelta {
	names := make([]string, 0, len(baseline)+len(attack))
	for name := range baseline {
		names = append(names, name)
	}
	for name := range attack {
		if _, ok := baseline[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]models.TagDelta, 0, len(names))
	for _, name := range names {
		out = append(out, models.TagDelta{
			Tag:      name,
			Baseline: baseline[name],
			Attack:   attack[name],
			Delta:    attack[name] - baseline[name],
		})
	}
	return out
}
