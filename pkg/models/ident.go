package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NormalizeID returns the canonical string form of a node identifier.
// Values are trimmed and integral float renderings ("11.0") collapse to "11".
func NormalizeID(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || !strings.Contains(v, ".") {
		return v
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return v
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return v
}
