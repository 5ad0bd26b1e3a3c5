package digest

import (
	"time"

	"linecal/internal/model"
)

// Normalize coerces a raw event's start/end stamps into a concrete
// interval in the display timezone. It returns ok=false when the event
// has no start; such events are unusable and must be skipped.
//
// End is guaranteed to be strictly after Start on return: a missing end,
// or one that does not land after the start once coerced, is replaced by
// start+24h for all-day-like events and start+1h otherwise, with
// Repaired set so callers can count how often the source needed fixing.
func Normalize(ev model.RawEvent, loc *time.Location) (model.NormalizedInterval, bool) {
	if ev.Start == nil {
		return model.NormalizedInterval{}, false
	}

	// All-day-like is decided by the stamp shape, not by zone presence:
	// a bare date on either edge makes the whole event all-day-like.
	allDay := ev.Start.Kind == model.StampDateOnly ||
		(ev.End != nil && ev.End.Kind == model.StampDateOnly)

	start := coerce(*ev.Start, loc)

	var end time.Time
	hasEnd := ev.End != nil
	if hasEnd {
		end = coerce(*ev.End, loc)
	}

	repaired := false
	if !hasEnd || !end.After(start) {
		if allDay {
			end = start.Add(24 * time.Hour)
		} else {
			end = start.Add(time.Hour)
		}
		repaired = true
	}

	return model.NormalizedInterval{
		Start:    start,
		End:      end,
		AllDay:   allDay,
		Repaired: repaired,
	}, true
}

// coerce maps each stamp variant into the display timezone:
//   - a bare date becomes local midnight
//   - a naive wall clock is re-tagged with the display zone as-is
//   - a zoned instant is converted
func coerce(s model.Stamp, loc *time.Location) time.Time {
	switch s.Kind {
	case model.StampDateOnly:
		return time.Date(s.Year, s.Month, s.Day, 0, 0, 0, 0, loc)
	case model.StampNaiveLocal:
		w := s.Wall
		return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), loc)
	default:
		return s.Wall.In(loc)
	}
}
