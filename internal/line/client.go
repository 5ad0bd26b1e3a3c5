package line

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	appLog "linecal/internal/log"
)

const (
	defaultPushEndpoint      = "https://api.line.me/v2/bot/message/push"
	defaultBroadcastEndpoint = "https://api.line.me/v2/bot/message/broadcast"

	// summaryLimit bounds how much of the response body is surfaced in
	// diagnostics.
	summaryLimit = 200
)

// Client delivers text messages through the LINE Messaging API, either as
// a targeted push or as a broadcast. When required credentials are absent
// it degrades to a dry run: the message is logged and treated as sent.
//
// Client implements the dispatcher's Notifier interface.
type Client struct {
	token     string
	to        string
	broadcast bool

	http              *http.Client
	pushEndpoint      string
	broadcastEndpoint string
}

// NewClient builds a Client. token is the channel access token; to is the
// push recipient, ignored in broadcast mode.
func NewClient(token, to string, broadcast bool) *Client {
	return &Client{
		token:             token,
		to:                to,
		broadcast:         broadcast,
		http:              &http.Client{Timeout: 15 * time.Second},
		pushEndpoint:      defaultPushEndpoint,
		broadcastEndpoint: defaultBroadcastEndpoint,
	}
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pushPayload struct {
	To       string        `json:"to,omitempty"`
	Messages []textMessage `json:"messages"`
}

// Send delivers one text message and reports the transport status code,
// whether delivery succeeded, and a short response summary.
func (c *Client) Send(ctx context.Context, text string) (int, bool, string) {
	if c.dryRun() {
		appLog.Info("dry run; send skipped", "broadcast", c.broadcast, "chars", len([]rune(text)))
		return 0, true, "dry-run"
	}

	endpoint := c.pushEndpoint
	payload := pushPayload{To: c.to, Messages: []textMessage{{Type: "text", Text: text}}}
	route := "push"
	if c.broadcast {
		endpoint = c.broadcastEndpoint
		payload.To = ""
		route = "broadcast"
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, false, "encode payload: " + err.Error()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return 0, false, "build request: " + err.Error()
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, false, err.Error()
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, summaryLimit))
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	appLog.Info("line send", "route", route, "status", resp.StatusCode, "ok", ok)
	return resp.StatusCode, ok, string(body)
}

// dryRun reports whether credentials are insufficient for a real send.
func (c *Client) dryRun() bool {
	if c.token == "" {
		return true
	}
	if !c.broadcast && c.to == "" {
		return true
	}
	return false
}
