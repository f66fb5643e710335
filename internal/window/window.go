// Package window builds the bounded conversational context preceding a
// target message. The same walk backs both the offline fine-tuning extractor
// and the online reply path; only the length bound differs between them.
package window

import (
	"context"
	"strings"
)

// Message is one channel message, ordered by TS. It is never mutated after
// loading.
type Message struct {
	TS      float64 // seconds since epoch
	User    string  // author ID; empty for unattributed messages
	Text    string
	Subtype string // non-empty marks platform-generated messages
}

// Namer resolves author IDs and sanitizes message text. *names.Resolver
// satisfies it.
type Namer interface {
	Resolve(ctx context.Context, id string) string
	Sanitize(ctx context.Context, text string) string
}

// Window is the accumulated context for one target message. Prompt lines are
// chronological, oldest first, each "{name}: {text}\n". The caller appends
// the persona speaker cue.
type Window struct {
	Prompt   string
	Accepted int
	HasLink  bool
}

// Build walks history backward from just before target, collecting up to
// maxLen messages no older than maxAge seconds before the target. The walk
// halts outright at the first synthetic message, the first message carrying a
// raw link (which also sets HasLink), or the first message without an author,
// even if qualifying messages exist further back.
//
// history must be sorted ascending by TS and target must index into it.
func Build(ctx context.Context, names Namer, history []Message, target, maxLen int, maxAge float64) Window {
	var w Window
	cutoff := history[target].TS - maxAge

	for i := target - 1; i >= 0; i-- {
		m := history[i]
		if m.TS < cutoff {
			break
		}
		if m.Subtype != "" {
			break
		}
		if strings.Contains(m.Text, "<http") {
			w.HasLink = true
			break
		}
		if m.User == "" {
			break
		}

		name := names.Resolve(ctx, m.User)
		text := names.Sanitize(ctx, strings.TrimSpace(m.Text))
		w.Prompt = name + ": " + text + "\n" + w.Prompt
		w.Accepted++
		if w.Accepted >= maxLen {
			break
		}
	}
	return w
}
