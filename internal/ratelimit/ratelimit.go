package ratelimit

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	ProviderEmbed    = "gemini_embed"
	ProviderGenerate = "gemini_generate"
)

// Budget caps the number of AI calls per provider within a rolling period.
// A zero limit means unlimited.
type Budget struct {
	mu        sync.Mutex
	limit     int
	period    time.Duration
	counts    map[string]int
	denied    map[string]int
	resetTime time.Time
	now       func() time.Time
	logger    *slog.Logger
}

// NewBudget creates a budget allowing limit calls per provider per day.
func NewBudget(limit int, log *slog.Logger) *Budget {
	return NewBudgetWithClock(limit, 24*time.Hour, time.Now, log)
}

func NewBudgetWithClock(limit int, period time.Duration, now func() time.Time, log *slog.Logger) *Budget {
	if log == nil {
		log = slog.Default()
	}
	return &Budget{
		limit:     limit,
		period:    period,
		counts:    make(map[string]int),
		denied:    make(map[string]int),
		resetTime: now().Add(period),
		now:       now,
		logger:    log,
	}
}

// Use consumes one call for provider, or fails if the budget is spent.
func (b *Budget) Use(provider string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	if b.limit > 0 && b.counts[provider] >= b.limit {
		b.denied[provider]++
		return fmt.Errorf("%s rate limit exceeded (%d/%d)", provider, b.counts[provider], b.limit)
	}

	b.counts[provider]++
	b.logger.Debug("ratelimit: AI usage", "provider", provider, "used", b.counts[provider], "limit", b.limit)
	return nil
}

// GetStats returns current usage per provider.
func (b *Budget) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := map[string]interface{}{
		"limit":      b.limit,
		"reset_time": b.resetTime.Format(time.RFC3339),
	}
	for p, n := range b.counts {
		stats[p+"_used"] = n
	}
	for p, n := range b.denied {
		stats[p+"_denied"] = n
	}
	return stats
}

// checkReset resets counters if reset time has passed
func (b *Budget) checkReset() {
	now := b.now()
	if now.Before(b.resetTime) {
		return
	}

	b.logger.Info("ratelimit: resetting AI counters", "counts", fmt.Sprint(b.counts))
	b.counts = make(map[string]int)
	b.denied = make(map[string]int)
	b.resetTime = now.Add(b.period)
}
