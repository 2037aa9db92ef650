package conflict

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is a same-day time range in minutes since midnight, half-open:
// [Start, End). Touching boundaries do not overlap.
type Range struct {
	Start int
	End   int
}

// ParseClock converts an "HH:MM" wall-clock value into minutes since midnight.
func ParseClock(raw string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	hours, err := strconv.Atoi(hh)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	return hours*60 + minutes, nil
}

// ParseRange builds a Range from "HH:MM" start/end values. The start must be
// strictly before the end; overnight ranges are not supported.
func ParseRange(start, end string) (Range, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Range{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Range{}, err
	}
	if s >= e {
		return Range{}, fmt.Errorf("start time %s must be before end time %s", start, end)
	}
	return Range{Start: s, End: e}, nil
}

// Overlaps reports whether two half-open ranges intersect.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// Equal reports whether two ranges have identical boundaries.
func (r Range) Equal(other Range) bool {
	return r.Start == other.Start && r.End == other.End
}
