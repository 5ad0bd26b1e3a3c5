package digest

import (
	"context"
	"strings"
	"time"

	appLog "linecal/internal/log"
	"linecal/internal/model"
)

// Transport-imposed bounds on a single outbound message.
const (
	maxMessageRunes  = 5000
	truncateToRunes  = 4800
	truncationSuffix = "…(省略)"
)

// DefaultSendDelay is the pacing interval between two consecutive sends.
const DefaultSendDelay = 250 * time.Millisecond

// Notifier is the injected delivery collaborator. Implementations must
// not panic on failure; a failed delivery is reported through ok=false
// and a short transport summary.
type Notifier interface {
	Send(ctx context.Context, text string) (status int, ok bool, summary string)
}

// Report aggregates the outcome of one dispatch run.
type Report struct {
	Sent   int
	Failed int
}

// OK reports overall success: every single send must have succeeded.
func (r Report) OK() bool { return r.Failed == 0 }

// Dispatcher delivers a digest as separate sequential messages: header
// first, then each event block in digest order. Sends are paced by a
// fixed delay and never retried; individual failures are tallied but do
// not stop the run.
type Dispatcher struct {
	notifier Notifier
	delay    time.Duration
}

// NewDispatcher builds a Dispatcher. A negative delay falls back to
// DefaultSendDelay; zero disables pacing (used by tests).
func NewDispatcher(n Notifier, delay time.Duration) *Dispatcher {
	if delay < 0 {
		delay = DefaultSendDelay
	}
	return &Dispatcher{notifier: n, delay: delay}
}

// Dispatch sends the header and every event message, in order, one
// outbound message each.
func (d *Dispatcher) Dispatch(ctx context.Context, dg model.Digest) Report {
	var rep Report

	d.sendOne(ctx, dg.Header, "(header)", &rep)
	for i, msg := range dg.Messages {
		time.Sleep(d.delay)
		hint := ""
		if i < len(dg.Titles) {
			hint = dg.Titles[i]
		}
		d.sendOne(ctx, msg, hint, &rep)
	}

	appLog.Info("dispatch complete", "sent", rep.Sent, "failed", rep.Failed)
	return rep
}

func (d *Dispatcher) sendOne(ctx context.Context, text, hint string, rep *Report) {
	text = capMessage(text)
	status, ok, summary := d.notifier.Send(ctx, text)
	rep.Sent++
	if !ok {
		rep.Failed++
		appLog.Warn("send failed", "title", hint, "status", status, "summary", summary)
	}
}

// capMessage truncates oversized messages below the transport limit,
// marking the cut with a fixed suffix.
func capMessage(text string) string {
	runes := []rune(text)
	if len(runes) <= maxMessageRunes {
		return text
	}
	return strings.TrimRight(string(runes[:truncateToRunes]), " \t\n") + truncationSuffix
}
