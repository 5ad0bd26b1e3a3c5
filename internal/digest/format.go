package digest

import (
	"fmt"
	"sort"
	"strings"

	"linecal/internal/model"
)

var weekdaysJP = [...]string{"日", "月", "火", "水", "木", "金", "土"}

const untitledEvent = "(無題)"

// TimeLabel returns the display token for one event: the all-day label,
// or HH:MM of the clipped start.
func TimeLabel(ev model.DisplayEvent) string {
	if ev.AllDay {
		return allDayLabel
	}
	return ev.ClippedStart.Format("15:04")
}

// BuildDigest sorts the surviving events and assembles the outbound
// digest: one header plus one message block per event.
//
// Ordering is total and reproducible: clipped start ascending, title as
// lexicographic tiebreak. Zero events still yields a valid digest with a
// count of 0 and no messages.
func BuildDigest(events []model.DisplayEvent, window model.DayWindow, opts Options) model.Digest {
	sorted := make([]model.DisplayEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ClippedStart.Equal(sorted[j].ClippedStart) {
			return sorted[i].ClippedStart.Before(sorted[j].ClippedStart)
		}
		return sorted[i].Title < sorted[j].Title
	})

	d := model.Digest{
		Header:   FormatHeader(window, len(sorted)),
		Messages: make([]string, 0, len(sorted)),
		Titles:   make([]string, 0, len(sorted)),
	}
	for _, ev := range sorted {
		d.Messages = append(d.Messages, formatEvent(ev, opts))
		d.Titles = append(d.Titles, displayTitle(ev))
	}
	return d
}

// FormatHeader renders the digest header: target date, localized weekday
// and the matched-event count, wrapped in bracket delimiters.
func FormatHeader(window model.DayWindow, count int) string {
	return fmt.Sprintf("【本日の予定 %s（%s）%d件】",
		window.Start.Format("2006-01-02"),
		weekdaysJP[window.Start.Weekday()],
		count,
	)
}

func formatEvent(ev model.DisplayEvent, opts Options) string {
	var b strings.Builder

	b.WriteString("・")
	b.WriteString(TimeLabel(ev))
	b.WriteString("\n")
	b.WriteString(displayTitle(ev))

	if opts.ShowLinks && ev.Link != "" {
		b.WriteString("\nリンク: ")
		b.WriteString(ev.Link)
	}
	if opts.ShowMemo && ev.Memo != "" {
		b.WriteString("\nメモ:\n")
		b.WriteString(ev.Memo)
	}

	return b.String()
}

func displayTitle(ev model.DisplayEvent) string {
	title := ev.Title
	if title == "" {
		title = untitledEvent
	}
	if ev.Location != "" {
		title += "（" + ev.Location + "）"
	}
	return title
}
