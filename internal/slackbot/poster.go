// Package slackbot wraps the slice of the Slack Web API the bot posts
// through.
package slackbot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

const imageTitle = "A drawing by PhilGPT"

// API is the posting surface of the Slack Web API. *slack.Client satisfies
// it.
type API interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

type Poster struct {
	api    API
	logger *slog.Logger
}

func NewPoster(api API, logger *slog.Logger) *Poster {
	return &Poster{api: api, logger: logger}
}

// PostText posts plain message text to a channel.
func (p *Poster) PostText(ctx context.Context, channel, text string) error {
	_, ts, err := p.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("chat.postMessage: %w", err)
	}
	p.logger.Info("message posted", "channel", channel, "ts", ts)
	return nil
}

// PostImage posts a generated image as an attachment, with optional
// accompanying text.
func (p *Poster) PostImage(ctx context.Context, channel, text, imageURL string) error {
	attachment := slack.Attachment{
		Title:    imageTitle,
		ImageURL: imageURL,
	}
	_, ts, err := p.api.PostMessageContext(ctx, channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionAttachments(attachment),
	)
	if err != nil {
		return fmt.Errorf("chat.postMessage: %w", err)
	}
	p.logger.Info("image posted", "channel", channel, "ts", ts, "url", imageURL)
	return nil
}
