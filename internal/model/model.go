package model

import "time"

// StampKind tags the three shapes a calendar timestamp can arrive in.
type StampKind int

const (
	// StampDateOnly is a bare calendar date with no time-of-day component
	// (ICS VALUE=DATE). Events carrying one are treated as all-day-like.
	StampDateOnly StampKind = iota
	// StampNaiveLocal is a wall-clock timestamp with no zone attached.
	// It is interpreted as already being local to the display timezone.
	StampNaiveLocal
	// StampZoned is a fully qualified instant (UTC suffix or TZID).
	StampZoned
)

// Stamp is the tagged-variant representation of a raw DTSTART/DTEND value.
// Consumers must switch on Kind; only the fields of the matching variant
// are meaningful.
type Stamp struct {
	Kind StampKind

	// DateOnly variant.
	Year  int
	Month time.Month
	Day   int

	// NaiveLocal variant: only the wall-clock fields of Wall are
	// meaningful, its Location is not.
	// Zoned variant: Wall is the full instant.
	Wall time.Time
}

// DateOnly builds a bare-date stamp.
func DateOnly(year int, month time.Month, day int) Stamp {
	return Stamp{Kind: StampDateOnly, Year: year, Month: month, Day: day}
}

// NaiveLocal builds a zone-less wall-clock stamp.
func NaiveLocal(wall time.Time) Stamp {
	return Stamp{Kind: StampNaiveLocal, Wall: wall}
}

// Zoned builds a fully qualified stamp.
func Zoned(instant time.Time) Stamp {
	return Stamp{Kind: StampZoned, Wall: instant}
}

// RawEvent is one calendar record as delivered by the calendar source,
// before any normalization. Start may be nil when the source record was
// malformed; such events are skipped downstream.
type RawEvent struct {
	UID string

	Start *Stamp
	End   *Stamp

	Title       string
	Location    string
	URL         string
	Description string
}

// NormalizedInterval is a RawEvent's time range coerced into the display
// timezone. End is always strictly after Start; a missing or non-positive
// duration has been repaired before this type is constructed.
type NormalizedInterval struct {
	Start  time.Time
	End    time.Time
	AllDay bool
	// Repaired is true when End was synthesized (absent or <= Start).
	Repaired bool
}

// DayWindow is the half-open [Start, End) range of the target day in the
// display timezone. End is Start plus 24 hours.
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// DisplayEvent is one event that survived the overlap filter, with its
// interval clipped to the day window and its content shaped for display.
type DisplayEvent struct {
	ClippedStart time.Time
	ClippedEnd   time.Time
	Title        string
	Location     string
	Link         string
	Memo         string
	AllDay       bool
}

// Digest is the complete outbound payload for one run: a header line plus
// one text block per display event, already in final send order.
type Digest struct {
	Header   string
	Messages []string
	// Titles carries the event title behind each entry of Messages, used
	// only for failure diagnostics during dispatch.
	Titles []string
}
