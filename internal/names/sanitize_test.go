package names

import (
	"context"
	"testing"

	"github.com/slack-go/slack"
)

func TestSanitize_ResolvesMentions(t *testing.T) {
	client := &fakeUserInfo{users: map[string]*slack.User{
		"U1": {Profile: slack.UserProfile{RealName: "Alice"}},
		"U2": {Profile: slack.UserProfile{RealName: "Bob"}},
	}}
	r := NewResolver(client, discardLogger())

	got := r.Sanitize(context.Background(), "hey <@U1>, ask <@U2> about it")
	want := "hey Alice, ask Bob about it"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSanitize_UnknownMentionUsesFallback(t *testing.T) {
	r := NewResolver(&fakeUserInfo{}, discardLogger())

	got := r.Sanitize(context.Background(), "ping <@UNOBODY>")
	if got != "ping "+Fallback {
		t.Errorf("expected fallback name, got %q", got)
	}
}

func TestSanitize_NeutralizesBroadcastTokens(t *testing.T) {
	r := NewResolver(&fakeUserInfo{}, discardLogger())

	got := r.Sanitize(context.Background(), "wake up <!here> now")
	want := "wake up \x01 now"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSanitize_IdempotentOnCleanText(t *testing.T) {
	r := NewResolver(&fakeUserInfo{}, discardLogger())

	text := "just a plain sentence"
	once := r.Sanitize(context.Background(), text)
	twice := r.Sanitize(context.Background(), once)
	if once != text {
		t.Errorf("clean text changed: %q", once)
	}
	if twice != once {
		t.Errorf("sanitize not idempotent: %q vs %q", once, twice)
	}
}

func TestSanitize_AliasRewrittenOnlyWhenSet(t *testing.T) {
	r := NewResolver(&fakeUserInfo{}, discardLogger())

	if got := r.Sanitize(context.Background(), "PhilGPT says hi"); got != "PhilGPT says hi" {
		t.Errorf("alias rewritten without configuration: %q", got)
	}

	r.SetAlias("PhilGPT", "Phil Barbeau")
	if got := r.Sanitize(context.Background(), "PhilGPT says hi"); got != "Phil Barbeau says hi" {
		t.Errorf("expected persona substitution, got %q", got)
	}
}
