package digest

import (
	"strings"
	"time"

	appLog "linecal/internal/log"
	"linecal/internal/model"
)

// Stats counts what happened to the raw events during one build.
type Stats struct {
	Total    int // raw events seen
	Skipped  int // unusable (missing start)
	Repaired int // intervals with a synthesized end
	Matched  int // events overlapping the day window
}

// Build runs the forward pipeline over one batch of raw events:
// normalize, filter against the day window, shape content, and assemble
// the digest. Data flows strictly forward; no stage mutates a prior
// stage's output.
func Build(events []model.RawEvent, window model.DayWindow, loc *time.Location, opts Options) (model.Digest, Stats) {
	var stats Stats

	display := make([]model.DisplayEvent, 0, len(events))
	for _, ev := range events {
		stats.Total++

		iv, ok := Normalize(ev, loc)
		if !ok {
			stats.Skipped++
			continue
		}
		if iv.Repaired {
			stats.Repaired++
		}
		if !Overlaps(iv, window) {
			continue
		}

		clippedStart, clippedEnd := Clip(iv, window)
		display = append(display, model.DisplayEvent{
			ClippedStart: clippedStart,
			ClippedEnd:   clippedEnd,
			Title:        ev.Title,
			Location:     strings.TrimSpace(ev.Location),
			Link:         ExtractLink(ev.URL, ev.Description),
			Memo:         ShapeMemo(ev.Description, iv.AllDay, opts.MemoMaxLength),
			AllDay:       iv.AllDay,
		})
	}
	stats.Matched = len(display)

	dg := BuildDigest(display, window, opts)

	appLog.Info("digest built",
		"day", window.Start.Format("2006-01-02"),
		"events_total", stats.Total,
		"skipped", stats.Skipped,
		"repaired", stats.Repaired,
		"matched", stats.Matched,
	)
	if preview := previewLine(dg); preview != "" {
		appLog.Debug("digest preview", "events", preview)
	}

	return dg, stats
}

// previewLine summarizes the first few events as "label:title" tokens.
func previewLine(dg model.Digest) string {
	const maxPreview = 3

	tokens := make([]string, 0, maxPreview)
	for i, title := range dg.Titles {
		if i >= maxPreview {
			break
		}
		// Messages and Titles share the sorted order; recover the label
		// from the message's first line.
		label := dg.Messages[i]
		if nl := strings.IndexByte(label, '\n'); nl >= 0 {
			label = label[:nl]
		}
		tokens = append(tokens, strings.TrimPrefix(label, "・")+":"+title)
	}
	return strings.Join(tokens, " / ")
}
