// Package app wires configuration into a running news service: it builds the
// fetcher, fingerprinting, dedup store and summarizer, runs tenants and
// delivers their messages.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/citynews/internal/config"
	"github.com/deusflow/citynews/internal/dedup"
	"github.com/deusflow/citynews/internal/fingerprint"
	"github.com/deusflow/citynews/internal/gemini"
	"github.com/deusflow/citynews/internal/metrics"
	"github.com/deusflow/citynews/internal/pipeline"
	"github.com/deusflow/citynews/internal/ratelimit"
	"github.com/deusflow/citynews/internal/rss"
	"github.com/deusflow/citynews/internal/shortlink"
	"github.com/deusflow/citynews/internal/summary"
	"github.com/deusflow/citynews/internal/telegram"
)

const emptyBody = "_No fresh headlines yet._"

// Sender delivers a composed message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

type Application struct {
	cfg          *config.Config
	tenants      []config.Tenant
	orchestrator *pipeline.Orchestrator
	registry     *dedup.Registry
	sender       Sender
	gemini       *gemini.Client
	budget       *ratelimit.Budget
	stop         context.CancelFunc
	logger       *slog.Logger
}

// New builds every component from cfg. Without a Gemini key fingerprints are
// lexical and lines use the feed title; without a Telegram token messages are
// only logged.
func New(cfg *config.Config, tenants []config.Tenant, log *slog.Logger) (*Application, error) {
	if len(tenants) == 0 {
		return nil, config.ErrNoTenants
	}
	if log == nil {
		log = slog.Default()
	}

	matcher, err := dedup.MatcherFor(cfg.DedupStrategy, cfg.SimilarityThreshold)
	if err != nil {
		return nil, err
	}

	a := &Application{
		cfg:     cfg,
		tenants: tenants,
		logger:  log.With("component", "app"),
	}

	bg, stop := context.WithCancel(context.Background())
	a.stop = stop

	var (
		embedder   fingerprint.Embedder
		summarizer summary.Summarizer = summary.Plain{}
	)
	if cfg.GeminiAPIKey != "" {
		a.budget = ratelimit.NewBudget(cfg.MaxGeminiRequests, log.With("component", "ratelimit"))
		client, err := gemini.NewClient(bg, cfg.GeminiAPIKey, gemini.Options{
			EmbedModel:   cfg.EmbedModel,
			SummaryModel: cfg.SummaryModel,
			Budget:       a.budget,
			Logger:       log.With("component", "gemini"),
		})
		if err != nil {
			stop()
			return nil, err
		}
		a.gemini = client
		embedder = client

		shortener := shortlink.New(shortlink.Options{Logger: log.With("component", "shortlink")})
		summarizer = summary.NewHeadline(client, shortener)
	} else {
		a.logger.Warn("GEMINI_API_KEY not set, using lexical fingerprints and plain headlines")
	}

	if cfg.DedupStrategy == config.DedupLexical {
		embedder = nil
	}

	if cfg.TelegramToken != "" {
		sender, err := telegram.NewClient(cfg.TelegramToken, telegram.Options{Logger: log.With("component", "telegram")})
		if err != nil {
			stop()
			return nil, err
		}
		a.sender = sender
	} else {
		a.logger.Warn("TELEGRAM_TOKEN not set, messages will only be logged")
	}

	generator := fingerprint.NewGenerator(embedder, fingerprint.Options{
		MaxInputChars: cfg.EmbedInputMaxChars,
		KeyWords:      cfg.LexicalKeyWords,
		Timeout:       cfg.EmbedTimeout,
		CacheTTL:      cfg.RecencyWindow,
	}, log.With("component", "fingerprint"))
	if memo := generator.Memo(); memo != nil {
		go memo.Run(bg, time.Hour)
	}

	a.registry = dedup.NewRegistry(cfg.RecencyWindow, matcher, time.Now)
	a.orchestrator = pipeline.New(pipeline.Deps{
		Source:         rss.NewFetcher(cfg.FetchTimeout, cfg.UserAgent, log.With("component", "rss")),
		Fingerprinter:  generator,
		Registry:       a.registry,
		Summarizer:     summarizer,
		Window:         cfg.RecencyWindow,
		Concurrency:    cfg.SummaryConcurrency,
		SummaryTimeout: cfg.SummaryTimeout,
		Logger:         log.With("component", "pipeline"),
	})

	return a, nil
}

func (a *Application) Tenants() []config.Tenant {
	return a.tenants
}

// RunTenant runs one pipeline cycle for key and delivers the message.
func (a *Application) RunTenant(ctx context.Context, key string) error {
	tenant, err := config.Find(a.tenants, key)
	if err != nil {
		return err
	}

	if a.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.RunTimeout)
		defer cancel()
	}

	log := a.logger.With("tenant", tenant.Key)
	lines := a.orchestrator.Run(ctx, tenant)
	msg := ComposeMessage(tenant.Key, lines)

	if err := a.deliver(ctx, tenant, msg, log); err != nil {
		metrics.Global.SetError(err.Error())
		return err
	}

	metrics.Global.SetLastRun()
	return nil
}

func (a *Application) deliver(ctx context.Context, tenant config.Tenant, msg string, log *slog.Logger) error {
	if a.sender == nil || tenant.ChatID == "" {
		log.Info("app: no delivery target, message not sent", "chat_id", tenant.ChatID, "message", msg)
		return nil
	}

	if err := a.sender.SendMessage(ctx, tenant.ChatID, msg); err != nil {
		return fmt.Errorf("app: deliver %s: %w", tenant.Key, err)
	}
	metrics.Global.IncrementMessagesSent()
	return nil
}

// RunAll runs every tenant concurrently. Failures are logged per tenant.
func (a *Application) RunAll(ctx context.Context) {
	var g errgroup.Group
	errs := make([]error, len(a.tenants))
	for i, t := range a.tenants {
		i, t := i, t
		g.Go(func() error {
			errs[i] = a.RunTenant(ctx, t.Key)
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		a.logger.Error("app: some tenants failed", "err", err)
	}
}

// Stats merges process counters, the Gemini budget and dedup store sizes.
func (a *Application) Stats() map[string]interface{} {
	stats := metrics.Global.GetStats()
	stats["dedup_records"] = a.registry.Stats()
	if a.budget != nil {
		stats["gemini_budget"] = a.budget.GetStats()
	}
	return stats
}

func (a *Application) Close() {
	a.stop()
	if a.gemini != nil {
		a.gemini.Close()
	}
}

// ComposeMessage renders the tenant header and one paragraph per line.
func ComposeMessage(key string, lines []string) string {
	body := emptyBody
	if len(lines) > 0 {
		body = strings.Join(lines, "\n\n")
	}
	return "**📰 " + PrettyKey(key) + " Now**\n\n" + body
}

// PrettyKey turns new_york into New York.
func PrettyKey(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToTitle(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
