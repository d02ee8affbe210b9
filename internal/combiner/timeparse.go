package combiner

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseTime converts a log time into an offset from simulation start.
// Clock values ("1:02:03.5", "02:03.500") are read as h:m:s; bare numbers use unit (ms, us or s).
func ParseTime(value, unit string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if strings.Contains(value, ":") {
		return parseClock(value)
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return time.Duration(f * float64(unitScale(unit))), true
}

func parseClock(value string) (time.Duration, bool) {
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	secs, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	total := secs * float64(time.Second)

	mult := time.Minute
	for i := len(parts) - 2; i >= 0; i-- {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return 0, false
		}
		total += float64(n) * float64(mult)
		mult = time.Hour
	}
	return time.Duration(total), true
}

func unitScale(unit string) time.Duration {
	switch unit {
	case "us":
		return time.Microsecond
	case "s":
		return time.Second
	default:
		return time.Millisecond
	}
}
