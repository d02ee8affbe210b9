package rules

import "wsntrace/pkg/models"

// Engine tags mote records.
type Engine interface {
	Apply(rec models.MoteRecord) []models.EventTag
}

// CountTags applies the engine to every record and counts matches per tag name.
func CountTags(engine Engine, motes []models.MoteRecord) map[string]int {
	counts := make(map[string]int, 8)
	if engine == nil {
		return counts
	}
	for _, rec := range motes {
		for _, tag := range engine.Apply(rec) {
			name := tag.Name
			if name == "" {
				name = tag.ID
			}
			counts[name]++
		}
	}
	return counts
}
