// Package discord implements the notify Adapter for Discord via REST channel
// messages. No Gateway connection is opened; embeds are delivered over plain
// HTTP, which is all an outbound-only sink needs.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/dmelton/wrenchlog/internal/notify"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Close() error
}

// Adapter implements notify.Adapter for Discord.
type Adapter struct {
	sess      session
	channelID string
}

// AdapterOpts holds parameters for creating a Discord Adapter.
type AdapterOpts struct {
	BotToken  string // bot token, without the "Bot " prefix
	ChannelID string // channel to post to
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel id is required")
	}

	a := &Adapter{channelID: opts.ChannelID}
	if opts.Session != nil {
		a.sess = opts.Session
	} else {
		s, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		a.sess = s
	}
	return a, nil
}

// Name identifies the platform.
func (a *Adapter) Name() string { return "discord" }

// Send delivers an event as an embed with a severity color.
func (a *Adapter) Send(ctx context.Context, ev notify.Event) error {
	embed := &discordgo.MessageEmbed{
		Title:       ev.Title,
		Description: ev.Body,
		Color:       colorFor(ev.Severity),
	}
	for _, f := range ev.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}

	if _, err := a.sess.ChannelMessageSendEmbed(a.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send embed: %w", err)
	}
	return nil
}

// Close shuts down the underlying session.
func (a *Adapter) Close() error {
	if err := a.sess.Close(); err != nil {
		return fmt.Errorf("discord: close: %w", err)
	}
	return nil
}

// colorFor maps event severity to an embed color.
func colorFor(severity string) int {
	switch severity {
	case "warning":
		return 0xe8a317
	case "error":
		return 0xd00000
	default:
		return 0x36a64f
	}
}
