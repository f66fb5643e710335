package names

import (
	"context"
	"regexp"
	"strings"
)

var (
	mentionRE   = regexp.MustCompile(`<@(.*?)>`)
	broadcastRE = regexp.MustCompile(`<!(.*?)>`)
)

// broadcastMarker replaces <!here>/<!channel> style broadcast tokens.
// NOTE: this is a literal 0x01 byte, carried over unchanged from the training
// data pipeline that produced the existing fine-tuned model. It looks like it
// was meant to be a back-reference; changing it now would diverge from what
// the model was trained on.
const broadcastMarker = "\x01"

// Sanitize rewrites raw Slack message text for prompts: user mention tokens
// become resolved display names, broadcast tokens are neutralized, and (when
// an alias is configured) the bot's alias becomes the persona name.
func (r *Resolver) Sanitize(ctx context.Context, text string) string {
	// First pass: resolve every <@ID> span and splice in the display name.
	spans := mentionRE.FindAllStringSubmatchIndex(text, -1)
	if len(spans) > 0 {
		var sb strings.Builder
		last := 0
		for _, span := range spans {
			sb.WriteString(text[last:span[0]])
			sb.WriteString(r.Resolve(ctx, text[span[2]:span[3]]))
			last = span[1]
		}
		sb.WriteString(text[last:])
		text = sb.String()
	}

	// Second pass: literal substitution of broadcast tokens.
	text = broadcastRE.ReplaceAllString(text, broadcastMarker)

	if r.alias != "" {
		text = strings.ReplaceAll(text, r.alias, r.persona)
	}
	return text
}
