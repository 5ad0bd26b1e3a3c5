package ics

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "linecal/internal/log"
	"linecal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 1000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// Location is the display timezone; recurrence math needs concrete
	// instants, so stamps are provisionally coerced into this zone.
	Location *time.Location

	// RangeStart / RangeEnd bound the expansion window.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps runaway rules. Zero means the default.
	MaxOccurrencesPerEvent int
}

// Expand turns parsed events into raw pipeline events. Non-recurring
// events pass through with their stamps untouched; RRULE events are
// expanded into one raw event per occurrence inside the range, honoring
// EXDATE. An event whose rule cannot be parsed degrades to its base
// occurrence rather than disappearing.
func Expand(events []ParsedEvent, cfg ExpandConfig) []model.RawEvent {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	out := make([]model.RawEvent, 0, len(events))
	for _, ev := range events {
		if ev.RawRRule == "" || ev.Start == nil {
			out = append(out, toRawEvent(ev, ev.Start, ev.End))
			continue
		}
		out = append(out, expandRecurring(ev, cfg)...)
	}
	return out
}

func expandRecurring(ev ParsedEvent, cfg ExpandConfig) []model.RawEvent {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Warn("unparseable RRULE; keeping base occurrence", "uid", ev.UID, "rrule", ev.RawRRule)
		return []model.RawEvent{toRawEvent(ev, ev.Start, ev.End)}
	}

	allDay := ev.Start.Kind == model.StampDateOnly ||
		(ev.End != nil && ev.End.Kind == model.StampDateOnly)

	dtstart := instantOf(*ev.Start, cfg.Location)
	r.DTStart(dtstart)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(dtstart.Location()))
	}

	occTimes := set.Between(cfg.RangeStart.In(dtstart.Location()), cfg.RangeEnd.In(dtstart.Location()), true)
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		appLog.Warn("occurrence cap reached", "uid", ev.UID, "cap", cfg.MaxOccurrencesPerEvent)
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
	}

	// Timed events keep their original duration when an end exists;
	// otherwise the end stays absent and the normalizer repairs it.
	var duration time.Duration
	hasEnd := ev.End != nil
	if hasEnd && !allDay {
		duration = instantOf(*ev.End, cfg.Location).Sub(dtstart)
		if duration <= 0 {
			hasEnd = false
		}
	}

	out := make([]model.RawEvent, 0, len(occTimes))
	for _, occ := range occTimes {
		var start, end *model.Stamp

		if allDay {
			s := model.DateOnly(occ.Year(), occ.Month(), occ.Day())
			next := time.Date(occ.Year(), occ.Month(), occ.Day(), 0, 0, 0, 0, occ.Location()).AddDate(0, 0, 1)
			e := model.DateOnly(next.Year(), next.Month(), next.Day())
			start, end = &s, &e
		} else {
			s := model.Zoned(occ)
			start = &s
			if hasEnd {
				e := model.Zoned(occ.Add(duration))
				end = &e
			}
		}

		out = append(out, toRawEvent(ev, start, end))
	}
	return out
}

func toRawEvent(ev ParsedEvent, start, end *model.Stamp) model.RawEvent {
	return model.RawEvent{
		UID:         ev.UID,
		Start:       start,
		End:         end,
		Title:       ev.Title,
		Location:    ev.Location,
		URL:         ev.URL,
		Description: ev.Description,
	}
}

// instantOf provisionally maps a stamp onto the given zone for recurrence
// math. This mirrors the normalizer's coercion rules.
func instantOf(s model.Stamp, loc *time.Location) time.Time {
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
