package digest

import (
	"strings"
	"testing"
	"time"

	"linecal/internal/model"
)

func testWindow(t *testing.T) model.DayWindow {
	t.Helper()
	return WindowFor(time.Date(2024, time.June, 1, 12, 0, 0, 0, jst(t)), jst(t))
}

func TestFormatHeader(t *testing.T) {
	w := testWindow(t)

	got := FormatHeader(w, 3)
	want := "【本日の予定 2024-06-01（土）3件】"
	if got != want {
		t.Errorf("header = %q, want %q", got, want)
	}
}

func TestBuildDigestOrdering(t *testing.T) {
	loc := jst(t)
	w := testWindow(t)
	nine := time.Date(2024, time.June, 1, 9, 0, 0, 0, loc)

	events := []model.DisplayEvent{
		{ClippedStart: nine, Title: "B"},
		{ClippedStart: nine, Title: "A"},
		{ClippedStart: nine.Add(-time.Hour), Title: "Z"},
	}

	dg := BuildDigest(events, w, Options{ShowMemo: true, ShowLinks: true})

	if len(dg.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(dg.Messages))
	}
	if dg.Titles[0] != "Z" || dg.Titles[1] != "A" || dg.Titles[2] != "B" {
		t.Errorf("order = %v, want [Z A B]", dg.Titles)
	}

	// Repeated builds on identical input must be byte-identical.
	again := BuildDigest(events, w, Options{ShowMemo: true, ShowLinks: true})
	for i := range dg.Messages {
		if dg.Messages[i] != again.Messages[i] {
			t.Fatalf("non-deterministic message %d", i)
		}
	}
}

func TestBuildDigestZeroEvents(t *testing.T) {
	w := testWindow(t)

	dg := BuildDigest(nil, w, Options{})
	if len(dg.Messages) != 0 {
		t.Fatalf("got %d messages, want 0", len(dg.Messages))
	}
	if !strings.Contains(dg.Header, "0件") {
		t.Errorf("header must report a zero count, got %q", dg.Header)
	}
}

func TestFormatEventBlock(t *testing.T) {
	loc := jst(t)
	w := testWindow(t)

	events := []model.DisplayEvent{{
		ClippedStart: time.Date(2024, time.June, 1, 14, 30, 0, 0, loc),
		Title:        "打ち合わせ",
		Location:     "会議室A",
		Link:         "https://zoom.us/j/123",
		Memo:         "資料を持参",
	}}

	dg := BuildDigest(events, w, Options{ShowMemo: true, ShowLinks: true})
	got := dg.Messages[0]
	want := "・14:30\n打ち合わせ（会議室A）\nリンク: https://zoom.us/j/123\nメモ:\n資料を持参"
	if got != want {
		t.Errorf("block = %q, want %q", got, want)
	}
}

func TestFormatEventFlagsAndEmptyFields(t *testing.T) {
	loc := jst(t)
	w := testWindow(t)
	ev := model.DisplayEvent{
		ClippedStart: time.Date(2024, time.June, 1, 14, 30, 0, 0, loc),
		Title:        "打ち合わせ",
		Link:         "https://zoom.us/j/123",
		Memo:         "資料を持参",
	}

	// Disabled flags suppress the lines even when values exist.
	dg := BuildDigest([]model.DisplayEvent{ev}, w, Options{ShowMemo: false, ShowLinks: false})
	if got := dg.Messages[0]; got != "・14:30\n打ち合わせ" {
		t.Errorf("flags off: block = %q", got)
	}

	// Enabled flags with empty values also suppress the lines.
	ev.Link = ""
	ev.Memo = ""
	dg = BuildDigest([]model.DisplayEvent{ev}, w, Options{ShowMemo: true, ShowLinks: true})
	if got := dg.Messages[0]; got != "・14:30\n打ち合わせ" {
		t.Errorf("empty values: block = %q", got)
	}
}

func TestFormatAllDayAndUntitled(t *testing.T) {
	w := testWindow(t)

	events := []model.DisplayEvent{{
		ClippedStart: w.Start,
		ClippedEnd:   w.End,
		AllDay:       true,
	}}

	dg := BuildDigest(events, w, Options{ShowMemo: true, ShowLinks: true})
	if got := dg.Messages[0]; got != "・終日\n(無題)" {
		t.Errorf("block = %q", got)
	}
}
