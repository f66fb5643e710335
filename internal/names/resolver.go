package names

import (
	"context"
	"log/slog"
	"sync"

	"github.com/slack-go/slack"
)

// Fallback is the display name used when a user cannot be resolved at all.
const Fallback = "Student"

// UserInfoClient is the slice of the Slack Web API the resolver needs.
// *slack.Client satisfies it.
type UserInfoClient interface {
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
}

// Resolver maps Slack user IDs to display names, caching users.info results
// for the lifetime of the process. Entries are never refreshed; staleness is
// accepted.
type Resolver struct {
	client UserInfoClient
	logger *slog.Logger

	alias   string
	persona string

	mu    sync.Mutex
	cache map[string]*slack.User
}

func NewResolver(client UserInfoClient, logger *slog.Logger) *Resolver {
	return &Resolver{
		client: client,
		logger: logger,
		cache:  make(map[string]*slack.User),
	}
}

// SetAlias makes Sanitize rewrite the bot's display alias to the persona
// name, so the bot's own messages in history read naturally. Only the online
// bot sets this.
func (r *Resolver) SetAlias(alias, persona string) {
	r.alias = alias
	r.persona = persona
}

// Resolve returns a display name for a user ID, trying the profile real name,
// the top-level real name, then the profile display name. Every failure falls
// through to the next field; total failure yields Fallback. Resolve never
// returns an error.
func (r *Resolver) Resolve(ctx context.Context, id string) string {
	user := r.user(ctx, id)
	if user == nil {
		return Fallback
	}
	if user.Profile.RealName != "" {
		return user.Profile.RealName
	}
	if user.RealName != "" {
		return user.RealName
	}
	if user.Profile.DisplayName != "" {
		return user.Profile.DisplayName
	}
	return Fallback
}

// user returns the cached users.info record, performing at most one API call
// per distinct ID per process lifetime. Failed lookups are cached as nil so a
// misbehaving ID doesn't trigger a call per message.
func (r *Resolver) user(ctx context.Context, id string) *slack.User {
	r.mu.Lock()
	user, ok := r.cache[id]
	r.mu.Unlock()
	if ok {
		return user
	}

	user, err := r.client.GetUserInfoContext(ctx, id)
	if err != nil {
		r.logger.Debug("users.info lookup failed", "user", id, "error", err)
		user = nil
	}

	r.mu.Lock()
	r.cache[id] = user
	r.mu.Unlock()
	return user
}
