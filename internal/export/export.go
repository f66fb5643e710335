// Package export walks an exported Slack channel dump and emits
// prompt/completion pairs for fine-tuning a persona completion model, plus a
// token-count based cost estimate.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/philbarbeau/philgpt/internal/names"
	"github.com/philbarbeau/philgpt/internal/window"
)

const (
	contextMaxMessages = 3
	contextMaxAge      = 8 * 60 * 60 // seconds

	minTargetLen = 20
	maxTargetLen = 100

	// Per-token fine-tuning price times the epoch multiplier quoted for
	// curie at the time the dataset was built.
	costPerToken = 0.0000015 * 7.5
)

// Pair is one JSON Lines training example.
type Pair struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// Summary reports what an extraction run produced.
type Summary struct {
	Examples int
	Tokens   int
}

// EstimatedCost is the projected fine-tuning cost in dollars.
func (s Summary) EstimatedCost() float64 {
	return float64(s.Tokens) * costPerToken
}

// TokenCounter counts model tokens in a string. The production counter is
// tiktoken's r50k_base encoding, matching the completion model's vocabulary.
type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// NewTiktokenCounter returns a TokenCounter over the r50k_base encoding.
func NewTiktokenCounter() (TokenCounter, error) {
	enc, err := tiktoken.GetEncoding("r50k_base")
	if err != nil {
		return nil, fmt.Errorf("load r50k_base encoding: %w", err)
	}
	return tiktokenCounter{enc: enc}, nil
}

// Extractor produces training pairs from channel exports for one designated
// user.
type Extractor struct {
	names    *names.Resolver
	user     string
	persona  string
	channels map[string]bool
	counter  TokenCounter
	logger   *slog.Logger
}

func New(resolver *names.Resolver, user, persona string, channels []string, counter TokenCounter, logger *slog.Logger) *Extractor {
	allowed := make(map[string]bool, len(channels))
	for _, c := range channels {
		allowed[c] = true
	}
	return &Extractor{
		names:    resolver,
		user:     user,
		persona:  persona,
		channels: allowed,
		counter:  counter,
		logger:   logger,
	}
}

// Run walks every allowed channel directory under exportDir and writes one
// JSON object per accepted example to out.
func (e *Extractor) Run(ctx context.Context, exportDir string, out io.Writer) (Summary, error) {
	entries, err := os.ReadDir(exportDir)
	if err != nil {
		return Summary{}, fmt.Errorf("read export dir: %w", err)
	}

	enc := json.NewEncoder(out)
	var sum Summary

	for _, ent := range entries {
		if !ent.IsDir() || !e.channels[ent.Name()] {
			continue
		}

		msgs, err := LoadChannel(filepath.Join(exportDir, ent.Name()))
		if err != nil {
			e.logger.Warn("skipping unreadable channel", "channel", ent.Name(), "error", err)
			continue
		}

		channelSum, err := e.extractChannel(ctx, ent.Name(), msgs, enc)
		if err != nil {
			return sum, err
		}
		sum.Examples += channelSum.Examples
		sum.Tokens += channelSum.Tokens
	}

	return sum, nil
}

func (e *Extractor) extractChannel(ctx context.Context, channel string, msgs []window.Message, enc *json.Encoder) (Summary, error) {
	var sum Summary

	for i, m := range msgs {
		if !e.eligible(m) {
			continue
		}

		w := window.Build(ctx, e.names, msgs, i, contextMaxMessages, contextMaxAge)
		if w.Accepted <= 1 || w.HasLink {
			continue
		}

		completion := e.names.Sanitize(ctx, strings.TrimSpace(m.Text))
		pair := Pair{
			Prompt:     w.Prompt + e.persona + ":",
			Completion: " " + completion + "\n",
		}
		if err := enc.Encode(pair); err != nil {
			return sum, fmt.Errorf("write example: %w", err)
		}

		sum.Examples++
		sum.Tokens += e.counter.Count(pair.Prompt)
		sum.Tokens += e.counter.Count(pair.Completion)

		e.logger.Info("example accepted",
			"channel", channel,
			"at", time.Unix(int64(m.TS), 0).UTC().Format(time.RFC3339),
			"context", w.Accepted,
			"completion", completion,
		)
	}

	return sum, nil
}

// eligible applies the target-message filters: authored by the designated
// user, organic, link-free, single-line, and within the length band.
func (e *Extractor) eligible(m window.Message) bool {
	if m.User != e.user {
		return false
	}
	if m.Subtype != "" {
		return false
	}
	if strings.Contains(m.Text, "<http") {
		return false
	}
	if strings.TrimSpace(m.Text) == "" {
		return false
	}
	if strings.Contains(m.Text, "\n") {
		return false
	}
	if n := utf8.RuneCountInString(m.Text); n < minTargetLen || n > maxTargetLen {
		return false
	}
	return true
}
