package notify

import (
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"github.com/loppo-llc/termmux/internal/mux"
)

// SlackForwarder posts Alert/PaneRemoved/WindowRemoved notifications to a
// Slack incoming webhook, the second interchangeable Forwarder alongside
// WebpushForwarder: same Mux.Subscribe wiring, a different external sink.
type SlackForwarder struct {
	webhookURL string
	logger     *slog.Logger
}

// NewSlackForwarder constructs a forwarder that posts to webhookURL.
func NewSlackForwarder(webhookURL string, logger *slog.Logger) *SlackForwarder {
	return &SlackForwarder{webhookURL: webhookURL, logger: logger}
}

// Handle is a mux.Subscriber; it stays subscribed forever.
func (f *SlackForwarder) Handle(n mux.Notification) bool {
	var text string
	switch n.Kind {
	case mux.Alert:
		text = n.AlertText
	case mux.PaneRemoved:
		text = fmt.Sprintf("pane %d closed", uint64(n.PaneID))
	case mux.WindowRemoved:
		text = fmt.Sprintf("window %d closed", uint64(n.WindowID))
	default:
		return true
	}

	msg := &slack.WebhookMessage{Text: text}
	if err := slack.PostWebhook(f.webhookURL, msg); err != nil {
		if f.logger != nil {
			f.logger.Debug("slack post failed", "err", err)
		}
	}
	return true
}

var _ mux.Subscriber = (*SlackForwarder)(nil).Handle
