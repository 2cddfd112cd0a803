// Package slack implements the notify Adapter for Slack using the Web API.
package slack

import (
	"context"
	"fmt"

	"github.com/dmelton/wrenchlog/internal/notify"
	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Adapter implements notify.Adapter for Slack.
type Adapter struct {
	client    slackClient
	channelID string
}

// AdapterOpts holds parameters for creating a Slack Adapter.
type AdapterOpts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string // channel to post to
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel id is required")
	}

	a := &Adapter{channelID: opts.ChannelID}
	if opts.Client != nil {
		a.client = opts.Client
	} else {
		a.client = slackapi.New(opts.BotToken)
	}
	return a, nil
}

// Name identifies the platform.
func (a *Adapter) Name() string { return "slack" }

// Send delivers an event as a Block Kit attachment with a severity color.
func (a *Adapter) Send(ctx context.Context, ev notify.Event) error {
	attachment := slackapi.Attachment{
		Color: colorFor(ev.Severity),
		Title: ev.Title,
		Text:  ev.Body,
	}
	for _, f := range ev.Fields {
		attachment.Fields = append(attachment.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: true,
		})
	}

	_, _, err := a.client.PostMessageContext(ctx, a.channelID,
		slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// Close is a no-op; the Web API client holds no connection.
func (a *Adapter) Close() error { return nil }

// colorFor maps event severity to a Slack sidebar color.
func colorFor(severity string) string {
	switch severity {
	case "warning":
		return "#e8a317"
	case "error":
		return "#d00000"
	default:
		return "#36a64f"
	}
}
