// Package schedule runs the bot's unprompted posting loops: long randomized
// sleeps punctuated by a context-free persona post. Loops are cancellable via
// context, unlike the daemon threads they replaced.
package schedule

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// Loop fires an action after an initial delay, then repeatedly after a
// uniformly random delay in [Min, Max). There is no missed-tick recovery and
// no persistence of the schedule across restarts.
type Loop struct {
	Name    string
	Initial time.Duration
	Min     time.Duration
	Max     time.Duration
	Fire    func(ctx context.Context)
	Logger  *slog.Logger
}

// Run blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	delay := l.Initial
	for {
		l.Logger.Info("next post scheduled",
			"loop", l.Name,
			"at", time.Now().UTC().Add(delay).Format(time.RFC3339),
		)

		select {
		case <-ctx.Done():
			l.Logger.Info("scheduler stopped", "loop", l.Name)
			return
		case <-time.After(delay):
		}

		l.Fire(ctx)
		delay = Between(l.Min, l.Max)
	}
}

// Between returns a uniformly random duration in [min, max).
func Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
