// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import "log/slog"

// defaultInboxCapacity bounds the queue of tasks submitted to a Loop from
// other goroutines. Go retries with backoff when it is full.
const defaultInboxCapacity = 64

// Option configures a Loop.
type Option func(*loopConfig)

type loopConfig struct {
	inboxCapacity int
	logger        *slog.Logger
}

// WithInboxCapacity sets the capacity of the cross-goroutine submission
// queue. Values below 2 are raised to 2.
func WithInboxCapacity(n int) Option {
	return func(c *loopConfig) {
		c.inboxCapacity = max(n, 2)
	}
}

// WithLogger sets the logger receiving the loop's debug diagnostics.
// A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(c *loopConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func newLoopConfig(opts []Option) loopConfig {
	c := loopConfig{
		inboxCapacity: defaultInboxCapacity,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
