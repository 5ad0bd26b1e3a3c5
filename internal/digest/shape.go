package digest

import (
	"regexp"
	"strings"
)

// Options carries the externally supplied display configuration. It is
// built once from config at the process boundary and passed by value.
type Options struct {
	ShowMemo      bool
	ShowLinks     bool
	MemoMaxLength int // <= 0 disables memo truncation
}

const (
	// timeLabelMarker prefixes the time line TimeTree injects into event
	// notes ("時間: 10:00" / "時間: 終日").
	timeLabelMarker = "時間:"
	allDayLabel     = "終日"
	memoEllipsis    = "…(続く)"
)

// Hosted-meeting URL shapes, in priority order. The first pattern with
// any match wins.
var meetingLinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https?://[A-Za-z0-9.-]*zoom\.us/j/[^\s<>"]+`),
	regexp.MustCompile(`https?://meet\.google\.com/[^\s<>"]+`),
	regexp.MustCompile(`https?://teams\.microsoft\.com/l/meetup-join/[^\s<>"]+`),
}

var bareURLPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

var interiorSpaceRun = regexp.MustCompile(`\s{2,}`)

// ExtractLink searches the explicit URL field and the description for a
// known meeting link, falling back to the first bare http(s) token.
// Returns "" when nothing matches.
func ExtractLink(url, description string) string {
	text := url + "\n" + description
	for _, p := range meetingLinkPatterns {
		if m := p.FindString(text); m != "" {
			return m
		}
	}
	return bareURLPattern.FindString(text)
}

// ShapeMemo reduces free-form event notes to a bounded memo block.
// The transformation is idempotent: reapplying it to its own output
// yields the same text.
func ShapeMemo(text string, allDay bool, maxLen int) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = interiorSpaceRun.ReplaceAllString(line, " ")
		out = append(out, strings.TrimSpace(line))
	}

	// All-day events repeat the note TimeTree already renders as the time
	// label; drop it when it leads the memo. Iterate to a fixpoint so that
	// shaping stays idempotent when the marker appears more than once.
	if allDay {
		marker := timeLabelMarker + " " + allDayLabel
		for {
			dropped := false
			limit := 3
			if len(out) < limit {
				limit = len(out)
			}
			for i := 0; i < limit; i++ {
				if out[i] == marker {
					out = append(out[:i], out[i+1:]...)
					dropped = true
					break
				}
			}
			if !dropped {
				break
			}
		}
	}

	// Consecutive time-label lines carry no extra information; keep the
	// first of each run.
	out = collapseRuns(out, func(prev, cur string) bool {
		return strings.HasPrefix(prev, timeLabelMarker) && strings.HasPrefix(cur, timeLabelMarker)
	})

	// Squash blank-line runs to a single blank line.
	out = collapseRuns(out, func(prev, cur string) bool {
		return prev == "" && cur == ""
	})

	// Outer blank lines add nothing to a memo block.
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	joined := strings.Join(out, "\n")
	return truncateMemo(joined, maxLen)
}

// truncateMemo caps the memo at maxLen characters, ellipsis included, so
// that a truncated memo passes through unchanged on a second shaping.
func truncateMemo(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	cut := maxLen - len([]rune(memoEllipsis))
	if cut < 0 {
		cut = 0
	}
	return strings.TrimRight(string(runes[:cut]), " \t\n") + memoEllipsis
}

func collapseRuns(lines []string, sameRun func(prev, cur string) bool) []string {
	out := lines[:0]
	for i, line := range lines {
		if i > 0 && len(out) > 0 && sameRun(out[len(out)-1], line) {
			continue
		}
		out = append(out, line)
	}
	return out
}
