package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/slack-go/slack"

	"github.com/philbarbeau/philgpt/internal/names"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserInfo struct {
	users map[string]string // id → profile real name
}

func (f *fakeUserInfo) GetUserInfoContext(_ context.Context, user string) (*slack.User, error) {
	name, ok := f.users[user]
	if !ok {
		return nil, fmt.Errorf("user_not_found")
	}
	return &slack.User{ID: user, Profile: slack.UserProfile{RealName: name}}, nil
}

// wordCounter stands in for tiktoken so tests stay offline.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func writeChannel(t *testing.T, root, channel, shard string) {
	t.Helper()
	dir := filepath.Join(root, channel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create channel dir: %v", err)
	}
	writeShard(t, dir, "2023-01-01.json", shard)
}

func newTestExtractor(channels []string) *Extractor {
	resolver := names.NewResolver(&fakeUserInfo{users: map[string]string{
		"U1":    "Alice",
		"U2":    "Bob",
		"UPHIL": "Phil Barbeau",
	}}, discardLogger())
	return New(resolver, "UPHIL", "Phil Barbeau", channels, wordCounter{}, discardLogger())
}

func runExtractor(t *testing.T, root string, channels []string) (Summary, []Pair) {
	t.Helper()
	var out bytes.Buffer
	sum, err := newTestExtractor(channels).Run(context.Background(), root, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var pairs []Pair
	dec := json.NewDecoder(&out)
	for dec.More() {
		var p Pair
		if err := dec.Decode(&p); err != nil {
			t.Fatalf("failed to decode output line: %v", err)
		}
		pairs = append(pairs, p)
	}
	return sum, pairs
}

func TestRun_EmitsEligibleExample(t *testing.T) {
	root := t.TempDir()
	writeChannel(t, root, "general", `[
		{"ts": "1000.000000", "user": "U1", "text": "hi"},
		{"ts": "1010.000000", "user": "U2", "text": "hello"},
		{"ts": "1020.000000", "user": "UPHIL", "text": "this is a fine message okay"}
	]`)

	sum, pairs := runExtractor(t, root, []string{"general"})

	if sum.Examples != 1 {
		t.Fatalf("expected 1 example, got %d", sum.Examples)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 output line, got %d", len(pairs))
	}
	if pairs[0].Prompt != "Alice: hi\nBob: hello\nPhil Barbeau:" {
		t.Errorf("unexpected prompt %q", pairs[0].Prompt)
	}
	if pairs[0].Completion != " this is a fine message okay\n" {
		t.Errorf("unexpected completion %q", pairs[0].Completion)
	}
	// 6 words in the prompt, 6 in the completion with the word counter.
	if sum.Tokens != 12 {
		t.Errorf("expected 12 tokens, got %d", sum.Tokens)
	}
}

func TestRun_ExcludesShortTarget(t *testing.T) {
	root := t.TempDir()
	// Target is 19 characters, one below the minimum.
	writeChannel(t, root, "general", `[
		{"ts": "1000.000000", "user": "U1", "text": "hi"},
		{"ts": "1010.000000", "user": "U2", "text": "hello"},
		{"ts": "1020.000000", "user": "UPHIL", "text": "nineteen chars here"}
	]`)

	sum, pairs := runExtractor(t, root, []string{"general"})

	if sum.Examples != 0 || len(pairs) != 0 {
		t.Errorf("expected short target excluded, got %d examples", sum.Examples)
	}
}

func TestRun_LengthBandCountsCharacters(t *testing.T) {
	// 15 runes but 30 bytes: below the 20-character minimum even though the
	// byte length is inside the band.
	short := strings.Repeat("é", 15)
	// 60 runes but 120 bytes: inside the band even though the byte length
	// exceeds the 100-character maximum.
	long := strings.Repeat("é", 60)

	root := t.TempDir()
	writeChannel(t, root, "general", fmt.Sprintf(`[
		{"ts": "1000.000000", "user": "U1", "text": "hi"},
		{"ts": "1010.000000", "user": "U2", "text": "hello"},
		{"ts": "1020.000000", "user": "UPHIL", "text": "%s"},
		{"ts": "1030.000000", "user": "U1", "text": "ok"},
		{"ts": "1040.000000", "user": "U2", "text": "sure"},
		{"ts": "1050.000000", "user": "UPHIL", "text": "%s"}
	]`, short, long))

	sum, pairs := runExtractor(t, root, []string{"general"})

	if sum.Examples != 1 {
		t.Fatalf("expected only the 60-character target accepted, got %d examples", sum.Examples)
	}
	if len(pairs) != 1 || pairs[0].Completion != " "+long+"\n" {
		t.Errorf("expected the accented 60-character completion, got %+v", pairs)
	}
}

func TestRun_DiscardsCandidateWithLinkInContext(t *testing.T) {
	root := t.TempDir()
	writeChannel(t, root, "general", `[
		{"ts": "1000.000000", "user": "U1", "text": "see <http://example.com>"},
		{"ts": "1010.000000", "user": "U2", "text": "ok sounds good"},
		{"ts": "1020.000000", "user": "UPHIL", "text": "another fine message okay yes"}
	]`)

	sum, pairs := runExtractor(t, root, []string{"general"})

	if sum.Examples != 0 || len(pairs) != 0 {
		t.Errorf("expected link-tainted candidate discarded, got %d examples", sum.Examples)
	}
}

func TestRun_RequiresMoreThanOneContextMessage(t *testing.T) {
	root := t.TempDir()
	writeChannel(t, root, "general", `[
		{"ts": "1010.000000", "user": "U2", "text": "hello"},
		{"ts": "1020.000000", "user": "UPHIL", "text": "this is a fine message okay"}
	]`)

	sum, _ := runExtractor(t, root, []string{"general"})

	if sum.Examples != 0 {
		t.Errorf("expected single-message context rejected, got %d examples", sum.Examples)
	}
}

func TestRun_SkipsSyntheticAndMultilineTargets(t *testing.T) {
	root := t.TempDir()
	writeChannel(t, root, "general", `[
		{"ts": "1000.000000", "user": "U1", "text": "hi"},
		{"ts": "1010.000000", "user": "U2", "text": "hello"},
		{"ts": "1020.000000", "user": "UPHIL", "text": "a perfectly long message here", "subtype": "me_message"},
		{"ts": "1030.000000", "user": "UPHIL", "text": "line one is long\nline two is longer"}
	]`)

	sum, _ := runExtractor(t, root, []string{"general"})

	if sum.Examples != 0 {
		t.Errorf("expected synthetic and multiline targets skipped, got %d examples", sum.Examples)
	}
}

func TestRun_IgnoresChannelsOutsideAllowList(t *testing.T) {
	root := t.TempDir()
	writeChannel(t, root, "offtopic", `[
		{"ts": "1000.000000", "user": "U1", "text": "hi"},
		{"ts": "1010.000000", "user": "U2", "text": "hello"},
		{"ts": "1020.000000", "user": "UPHIL", "text": "this is a fine message okay"}
	]`)

	sum, pairs := runExtractor(t, root, []string{"general", "random"})

	if sum.Examples != 0 || len(pairs) != 0 {
		t.Errorf("expected off-list channel ignored, got %d examples", sum.Examples)
	}
}

func TestEstimatedCost(t *testing.T) {
	sum := Summary{Tokens: 1_000_000}
	want := 1_000_000 * 0.0000015 * 7.5
	if math.Abs(sum.EstimatedCost()-want) > 1e-9 {
		t.Errorf("expected cost %g, got %g", want, sum.EstimatedCost())
	}
}
