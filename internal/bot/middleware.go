package bot

import (
	"context"
	"strconv"
)

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

// allow applies the per-user message limit. A failing limiter lets the
// update through.
func (b *Bot) allow(ctx context.Context, userID int64) bool {
	if b.opts.RateLimitMessages <= 0 || b.opts.RateLimitWindow <= 0 {
		return true
	}
	allowed, err := b.sessions.CheckRateLimit(ctx, "tg:"+strconv.FormatInt(userID, 10), b.opts.RateLimitMessages, b.opts.RateLimitWindow)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Rate limit check failed")
		return true
	}
	if !allowed && b.metrics != nil {
		b.metrics.RateLimited.Inc()
	}
	return allowed
}
