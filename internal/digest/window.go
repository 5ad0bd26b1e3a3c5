package digest

import (
	"time"

	"linecal/internal/model"
)

// WindowFor computes the target day's half-open window from a reference
// instant: local midnight in the display zone through midnight plus 24h.
func WindowFor(ref time.Time, loc *time.Location) model.DayWindow {
	local := ref.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return model.DayWindow{
		Start: start,
		End:   start.Add(24 * time.Hour),
	}
}

// Overlaps reports whether the interval intersects the window under the
// half-open [start, end) convention. An interval ending exactly at window
// start, or starting exactly at window end, does not overlap.
func Overlaps(iv model.NormalizedInterval, w model.DayWindow) bool {
	return iv.Start.Before(w.End) && iv.End.After(w.Start)
}

// Clip intersects the interval with the window for display purposes.
// The interval itself is not mutated.
func Clip(iv model.NormalizedInterval, w model.DayWindow) (start, end time.Time) {
	start = iv.Start
	if start.Before(w.Start) {
		start = w.Start
	}
	end = iv.End
	if end.After(w.End) {
		end = w.End
	}
	return start, end
}
