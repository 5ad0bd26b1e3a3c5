package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "linecal/internal/log"
	"linecal/internal/model"
)

// ParsedEvent is one VEVENT as read from the calendar, before recurrence
// expansion. Start/End keep the raw tagged-stamp shape; timezone coercion
// belongs to the normalizer, not the parser.
type ParsedEvent struct {
	UID string

	Start *model.Stamp
	End   *model.Stamp

	Title       string
	Description string
	Location    string
	URL         string

	RawRRule string
	ExDates  []time.Time
}

// ParseICS parses a single ICS payload into a list of ParsedEvent.
//
// A VEVENT whose DTSTART cannot be read is kept with a nil Start so the
// pipeline can count it as skipped; only completely unreadable payloads
// fail the call.
func ParseICS(body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, ve := range cal.Events() {
		events = append(events, parseVEvent(ve))
	}

	appLog.Info("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) ParsedEvent {
	var out ParsedEvent

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}
	if p := ve.GetProperty("URL"); p != nil {
		out.URL = p.Value
	}

	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if s, err := stampFromProperty(p); err == nil {
			out.Start = s
		} else {
			appLog.Warn("unreadable DTSTART; event will be skipped", "uid", out.UID, "value", p.Value)
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
		if s, err := stampFromProperty(p); err == nil {
			out.End = s
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	// EXDATE can appear multiple times and hold comma-separated values.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	return out
}

// stampFromProperty classifies a DTSTART/DTEND value into the tagged
// stamp variants:
//
//   - VALUE=DATE or no time component -> DateOnly
//   - trailing Z                      -> Zoned (UTC)
//   - TZID parameter                  -> Zoned (that zone)
//   - otherwise                       -> NaiveLocal
func stampFromProperty(p *ical.IANAProperty) (*model.Stamp, error) {
	v := strings.TrimSpace(p.Value)
	if v == "" {
		return nil, errors.New("empty time value")
	}

	isDate := !strings.Contains(v, "T")
	if params := p.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			isDate = true
		}
	}

	if isDate {
		d := v
		if i := strings.IndexByte(d, 'T'); i >= 0 {
			d = d[:i]
		}
		t, err := time.Parse("20060102", d)
		if err != nil {
			return nil, err
		}
		s := model.DateOnly(t.Year(), t.Month(), t.Day())
		return &s, nil
	}

	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		if err != nil {
			return nil, err
		}
		s := model.Zoned(t)
		return &s, nil
	}

	if params := p.ICalParameters; params != nil {
		if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
			if loc, err := time.LoadLocation(tzs[0]); err == nil {
				t, perr := time.ParseInLocation("20060102T150405", v, loc)
				if perr != nil {
					return nil, perr
				}
				s := model.Zoned(t)
				return &s, nil
			}
			// Unknown TZID: fall through and treat the value as naive.
			appLog.Warn("unknown TZID; treating value as naive local", "tzid", tzs[0])
		}
	}

	// Wall clock only; the location carries no meaning for naive stamps.
	t, err := time.ParseInLocation("20060102T150405", v, time.UTC)
	if err != nil {
		return nil, err
	}
	s := model.NaiveLocal(t)
	return &s, nil
}

// parseICSTime parses a basic ICS date/date-time string, used for EXDATE
// values where full parameter context is not available.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}
	return time.ParseInLocation("20060102", v, time.Local)
}

// unescapeText undoes RFC 5545 text escaping in DESCRIPTION values.
func unescapeText(s string) string {
	r := strings.NewReplacer(
		`\n`, "\n",
		`\N`, "\n",
		`\,`, ",",
		`\;`, ";",
		`\\`, `\`,
	)
	return r.Replace(s)
}
