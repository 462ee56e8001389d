// Package scheduler runs per-tenant jobs at fixed local times of day.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/deusflow/citynews/internal/config"
)

// Scheduler keeps one cron instance per tenant so that every tenant's slots
// are evaluated in its own zone.
type Scheduler struct {
	mu     sync.Mutex
	crons  map[string]*cron.Cron
	logger *slog.Logger
}

func New(log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		crons:  make(map[string]*cron.Cron),
		logger: log,
	}
}

// AddTenant registers task at each HH:MM slot in the tenant's zone. A slot
// that fires while the previous run is still going is skipped.
func (s *Scheduler) AddTenant(t config.Tenant, slots []string, task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.crons[t.Key]; ok {
		return fmt.Errorf("scheduler: tenant %s already scheduled", t.Key)
	}

	log := s.logger.With("tenant", t.Key)
	c := cron.New(
		cron.WithLocation(t.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{log})),
	)

	for _, slot := range slots {
		expr, err := SlotSpec(slot)
		if err != nil {
			return err
		}
		if _, err := c.AddFunc(expr, task); err != nil {
			return fmt.Errorf("scheduler: add %s slot %s: %w", t.Key, slot, err)
		}
	}

	s.crons[t.Key] = c
	log.Info("scheduler: tenant scheduled", "slots", slots, "timezone", t.Location().String())
	return nil
}

// SlotSpec converts HH:MM into a daily cron expression.
func SlotSpec(slot string) (string, error) {
	hour, minute, err := config.ParseSlot(slot)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// NextRun reports the next slot after now for tenant key, zero if unknown.
func (s *Scheduler) NextRun(key string, now time.Time) time.Time {
	s.mu.Lock()
	c, ok := s.crons[key]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}

	var next time.Time
	for _, e := range c.Entries() {
		n := e.Schedule.Next(now.In(c.Location()))
		if next.IsZero() || n.Before(next) {
			next = n
		}
	}
	return next
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.crons {
		c.Start()
	}
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	stopped := make([]context.Context, 0, len(s.crons))
	for _, c := range s.crons {
		stopped = append(stopped, c.Stop())
	}
	s.mu.Unlock()

	for _, done := range stopped {
		select {
		case <-done.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
