// Package reply turns a verified app_mention into a persona reply: it
// reconstructs conversational context from channel history, runs the persona
// completion model, and posts the result back to the originating channel.
package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/slack-go/slack"

	"github.com/philbarbeau/philgpt/internal/names"
	"github.com/philbarbeau/philgpt/internal/openai"
	"github.com/philbarbeau/philgpt/internal/slackbot"
	"github.com/philbarbeau/philgpt/internal/window"
)

const (
	contextMaxMessages = 5
	contextMaxAge      = 8 * 60 * 60 // seconds
	historyLimit       = 100

	describeImagePrompt = "Describe an image based on the following prompt in 100 words or less."
)

// Mention is the app_mention payload the responder acts on.
type Mention struct {
	Channel string
	TS      string
	Text    string
}

// HistoryFetcher is the history slice of the Slack Web API. *slack.Client
// satisfies it.
type HistoryFetcher interface {
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
}

type Responder struct {
	history HistoryFetcher
	poster  *slackbot.Poster
	llm     *openai.Client
	names   *names.Resolver
	persona string
	logger  *slog.Logger
}

func NewResponder(history HistoryFetcher, poster *slackbot.Poster, llm *openai.Client, resolver *names.Resolver, persona string, logger *slog.Logger) *Responder {
	return &Responder{
		history: history,
		poster:  poster,
		llm:     llm,
		names:   resolver,
		persona: persona,
		logger:  logger,
	}
}

// Handle builds the context prompt for a mention and posts the generated
// reply. Mentions asking for a picture or image additionally get an image
// reply. Failures are logged and abort only this event.
func (r *Responder) Handle(ctx context.Context, m Mention) {
	prompt, err := r.buildPrompt(ctx, m)
	if err != nil {
		r.logger.Error("context build failed", "channel", m.Channel, "ts", m.TS, "error", err)
		return
	}

	if wantsImage(m.Text) {
		if err := r.PostImage(ctx, m.Channel, prompt, false); err != nil {
			r.logger.Error("image reply failed", "channel", m.Channel, "error", err)
		}
	}
	if err := r.PostText(ctx, m.Channel, prompt); err != nil {
		r.logger.Error("text reply failed", "channel", m.Channel, "error", err)
	}
}

// PostText generates a persona completion for the prompt and posts it.
func (r *Responder) PostText(ctx context.Context, channel, prompt string) error {
	output, err := r.llm.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("completion: %w", err)
	}
	if err := r.poster.PostText(ctx, channel, output); err != nil {
		return err
	}
	r.logger.Info("reply posted", "channel", channel, "prompt", prompt, "reply", output)
	return nil
}

// PostImage generates a persona completion, turns it into an image
// description via the chat model, renders the image, and posts it. The
// completion text accompanies the image only when showText is set.
func (r *Responder) PostImage(ctx context.Context, channel, prompt string, showText bool) error {
	output, err := r.llm.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("completion: %w", err)
	}

	imagePrompt, err := r.llm.Chat(ctx, describeImagePrompt, output)
	if err != nil {
		return fmt.Errorf("image description: %w", err)
	}
	r.logger.Info("image prompt generated", "prompt", imagePrompt)

	url, err := r.llm.Image(ctx, imagePrompt)
	if err != nil {
		return fmt.Errorf("image generation: %w", err)
	}

	text := ""
	if showText {
		text = output
	}
	return r.poster.PostImage(ctx, channel, text, url)
}

// buildPrompt fetches channel history up to and including the mention and
// walks the shared context window over it, ending with the persona cue.
func (r *Responder) buildPrompt(ctx context.Context, m Mention) (string, error) {
	ts, err := strconv.ParseFloat(m.TS, 64)
	if err != nil {
		return "", fmt.Errorf("parse event ts: %w", err)
	}

	oldest := ts - contextMaxAge
	if oldest < 0 {
		oldest = 0
	}
	resp, err := r.history.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: m.Channel,
		Latest:    m.TS,
		Oldest:    formatTS(oldest),
		Inclusive: true,
		Limit:     historyLimit,
	})
	if err != nil {
		return "", fmt.Errorf("conversations.history: %w", err)
	}

	// conversations.history returns newest first; the window walk wants
	// ascending order.
	msgs := make([]window.Message, 0, len(resp.Messages))
	target := -1
	for i := len(resp.Messages) - 1; i >= 0; i-- {
		sm := resp.Messages[i]
		mts, err := strconv.ParseFloat(sm.Timestamp, 64)
		if err != nil {
			continue
		}
		msgs = append(msgs, window.Message{
			TS:      mts,
			User:    sm.User,
			Text:    sm.Text,
			Subtype: sm.SubType,
		})
		if sm.Timestamp == m.TS {
			target = len(msgs) - 1
		}
	}
	if target < 0 {
		// Mention not in the fetched history; anchor on the newest message.
		target = len(msgs) - 1
	}
	if target < 0 {
		return "", fmt.Errorf("empty channel history for ts %s", m.TS)
	}

	w := window.Build(ctx, r.names, msgs, target, contextMaxMessages, contextMaxAge)
	return w.Prompt + r.persona + ":", nil
}

func wantsImage(text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(t, "picture") || strings.Contains(t, "image")
}

func formatTS(ts float64) string {
	return strconv.FormatFloat(ts, 'f', 6, 64)
}
