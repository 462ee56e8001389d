// Package pipeline runs one tenant through fetch, recency filter, ranking,
// dedup-and-admit and summarization.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/citynews/internal/config"
	"github.com/deusflow/citynews/internal/dedup"
	"github.com/deusflow/citynews/internal/fingerprint"
	"github.com/deusflow/citynews/internal/metrics"
	"github.com/deusflow/citynews/internal/news"
	"github.com/deusflow/citynews/internal/rss"
	"github.com/deusflow/citynews/internal/summary"
)

// EntrySource fetches every source of a tenant and never fails as a whole.
type EntrySource interface {
	FetchAll(ctx context.Context, urls []string) ([]rss.Entry, []rss.SourceResult)
}

// Fingerprinter always returns a usable fingerprint.
type Fingerprinter interface {
	Generate(ctx context.Context, e rss.Entry) fingerprint.Fingerprint
}

type Deps struct {
	Source         EntrySource
	Fingerprinter  Fingerprinter
	Registry       *dedup.Registry
	Summarizer     summary.Summarizer
	Window         time.Duration
	Concurrency    int           // parallel summarizer calls
	SummaryTimeout time.Duration // per entry, zero for none
	Clock          func() time.Time
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
}

// Selected is an entry admitted by this run.
type Selected struct {
	Entry       rss.Entry
	Fingerprint fingerprint.Fingerprint
}

type Orchestrator struct {
	deps Deps
}

func New(deps Deps) *Orchestrator {
	if deps.Window <= 0 {
		deps.Window = news.DefaultWindow
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = 4
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Global
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Summarizer == nil {
		deps.Summarizer = summary.Plain{}
	}
	if deps.Registry == nil {
		deps.Registry = dedup.NewRegistry(deps.Window, nil, deps.Clock)
	}
	return &Orchestrator{deps: deps}
}

// SelectFresh admits up to tenant.Limit novel entries, newest first.
func (o *Orchestrator) SelectFresh(ctx context.Context, tenant config.Tenant) []Selected {
	return o.selectFresh(ctx, tenant, o.runLogger(tenant))
}

// Run selects fresh entries and summarizes each into a display line. Lines
// keep selection order; entries whose summary fails are left out but stay
// admitted.
func (o *Orchestrator) Run(ctx context.Context, tenant config.Tenant) []string {
	start := time.Now()
	log := o.runLogger(tenant)

	selected := o.selectFresh(ctx, tenant, log)
	lines := o.summarize(ctx, tenant, selected, log)

	o.deps.Metrics.RecordProcessingTime(time.Since(start))
	log.Info("pipeline: run finished", "selected", len(selected), "lines", len(lines), "duration", time.Since(start))
	return lines
}

func (o *Orchestrator) runLogger(tenant config.Tenant) *slog.Logger {
	return o.deps.Logger.With("tenant", tenant.Key, "run_id", uuid.NewString())
}

func (o *Orchestrator) selectFresh(ctx context.Context, tenant config.Tenant, log *slog.Logger) []Selected {
	if tenant.Limit <= 0 || len(tenant.Feeds) == 0 {
		return nil
	}

	entries, results := o.deps.Source.FetchAll(ctx, tenant.Feeds)
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	o.deps.Metrics.AddEntriesFetched(len(entries))
	o.deps.Metrics.AddSourcesFailed(failed)

	fresh, stats := news.FilterRecent(entries, o.deps.Clock(), tenant.Location(), o.deps.Window)
	o.deps.Metrics.AddEntriesStale(stats.Stale)
	o.deps.Metrics.AddEntriesUndated(stats.Undated)
	log.Debug("pipeline: filtered", "fetched", len(entries), "kept", stats.Kept, "stale", stats.Stale, "undated", stats.Undated)

	ranked := news.Rank(fresh)
	state := o.deps.Registry.State(tenant.Key)

	selected := make([]Selected, 0, tenant.Limit)
	for _, e := range ranked {
		if len(selected) >= tenant.Limit {
			break
		}
		if ctx.Err() != nil {
			log.Warn("pipeline: run cancelled during dedup", "err", ctx.Err(), "selected", len(selected))
			break
		}

		fp := o.deps.Fingerprinter.Generate(ctx, e)
		dup, reason := state.IsDuplicateAndAdmit(e.Identity, fp)
		if dup {
			o.countDuplicate(reason)
			log.Debug("pipeline: duplicate skipped", "reason", string(reason), "title", e.Title, "source", e.Source)
			continue
		}

		o.deps.Metrics.IncrementAdmitted()
		selected = append(selected, Selected{Entry: e, Fingerprint: fp})
	}

	log.Info("pipeline: selection done", "sources", len(tenant.Feeds), "failed_sources", failed,
		"candidates", len(ranked), "selected", len(selected), "limit", tenant.Limit)
	return selected
}

func (o *Orchestrator) countDuplicate(reason dedup.Reason) {
	switch reason {
	case dedup.ReasonIdentity:
		o.deps.Metrics.IncrementIdentityDuplicates()
	case dedup.ReasonTopic:
		o.deps.Metrics.IncrementTopicDuplicates()
	}
}

func (o *Orchestrator) summarize(ctx context.Context, tenant config.Tenant, selected []Selected, log *slog.Logger) []string {
	if len(selected) == 0 {
		return nil
	}

	out := make([]string, len(selected))
	ok := make([]bool, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.deps.Concurrency)
	for i, s := range selected {
		i, s := i, s
		g.Go(func() error {
			callCtx := gctx
			if o.deps.SummaryTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(gctx, o.deps.SummaryTimeout)
				defer cancel()
			}

			line, err := o.deps.Summarizer.Summarize(callCtx, s.Entry, tenant.Lang)
			if err != nil {
				o.deps.Metrics.IncrementSummariesFailed()
				log.Warn("pipeline: summarizer failed, entry dropped", "title", s.Entry.Title, "err", err)
				return nil
			}
			out[i], ok[i] = line, true
			return nil
		})
	}
	_ = g.Wait()

	lines := make([]string, 0, len(selected))
	for i := range out {
		if ok[i] {
			lines = append(lines, out[i])
		}
	}
	return lines
}
