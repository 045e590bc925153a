// Package runner executes scenarios with a fresh browser session each,
// bounded by the configured parallelism and launch rate, and publishes the
// run report and failure screenshots to an artifact store.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kuitang/storefront-e2e/internal/artifacts"
	"github.com/kuitang/storefront-e2e/internal/config"
	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/fixture"
	"github.com/kuitang/storefront-e2e/internal/obs"
	"github.com/kuitang/storefront-e2e/internal/pages"
	"github.com/kuitang/storefront-e2e/internal/report"
	"github.com/kuitang/storefront-e2e/internal/scenario"
)

// Report object names under artifacts.Key(runID, SummaryDir, name).
const (
	SummaryDir     = "summary"
	ReportMarkdown = "report.md"
	ReportHTML     = "report.html"
	ReportJSON     = "report.json"
	FailureShot    = "failure.png"
)

// Opener starts an isolated session and returns its surface and release func.
type Opener func(ctx context.Context, cfg *config.Config) (pages.Surface, func() error, error)

// BrowserOpener opens a real browser session through fixture.Open.
func BrowserOpener(ctx context.Context, cfg *config.Config) (pages.Surface, func() error, error) {
	s, err := fixture.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return s.Surface, s.Close, nil
}

type Runner struct {
	cfg     *config.Config
	store   artifacts.Store
	open    Opener
	limiter *rate.Limiter
	now     func() time.Time
}

// New builds a Runner. A nil opener means BrowserOpener.
func New(cfg *config.Config, store artifacts.Store, open Opener) *Runner {
	if open == nil {
		open = BrowserOpener
	}
	limit := rate.Inf
	if cfg.LaunchRate > 0 {
		limit = rate.Limit(cfg.LaunchRate)
	}
	return &Runner{
		cfg:     cfg,
		store:   store,
		open:    open,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

// Run executes every scenario and returns the filled report. Scenario
// failures are recorded in the report; the returned error is only set when
// publishing the report fails.
func (r *Runner) Run(ctx context.Context, scenarios []scenario.Scenario) (*report.Report, error) {
	started := r.now()
	runID := artifacts.NewRunID(started)
	ctx = obs.WithCorrelation(ctx, obs.Correlation{RunID: runID})
	rep := report.New(runID, r.cfg.BaseURL, started)

	log := obs.From(ctx)
	log.Info("run started", "pkg", "runner", "scenarios", len(scenarios), "browser", r.cfg.Browser, "parallel", r.cfg.Parallelism)

	var g errgroup.Group
	if r.cfg.Parallelism > 0 {
		g.SetLimit(r.cfg.Parallelism)
	}
	for _, s := range scenarios {
		g.Go(func() error {
			rep.Add(r.runOne(ctx, runID, s))
			return nil
		})
	}
	_ = g.Wait()

	counts := rep.Counts()
	log.Info("run finished", "pkg", "runner",
		"passed", counts[report.StatusPassed], "failed", counts[report.StatusFailed], "skipped", counts[report.StatusSkipped],
		"duration_ms", r.now().Sub(started).Milliseconds())

	return rep, r.publish(ctx, rep)
}

func (r *Runner) runOne(ctx context.Context, runID string, s scenario.Scenario) (res report.Result) {
	ctx = obs.WithCorrelation(ctx, obs.Correlation{Test: s.Name})
	log := obs.From(ctx)
	start := r.now()

	if err := r.limiter.Wait(ctx); err != nil {
		return report.NewResult(s.Name, r.cfg.Browser, 0, err)
	}

	surface, release, err := r.open(ctx, r.cfg)
	if err != nil {
		if errs.Is(err, errs.Unavailable) {
			log.Warn("browser unavailable, scenario skipped", "pkg", "runner", "error", err)
			return report.SkippedResult(s.Name, r.cfg.Browser, r.now().Sub(start), err)
		}
		log.Error("session failed to open", "pkg", "runner", "error", err)
		return report.NewResult(s.Name, r.cfg.Browser, r.now().Sub(start), err)
	}

	var runErr error
	var shots []string
	defer func() {
		if p := recover(); p != nil {
			log.Error("scenario panicked", "pkg", "runner", "panic", fmt.Sprint(p))
			runErr = errors.Join(runErr, errs.New(errs.Internal, fmt.Sprintf("scenario %s panicked: %v", s.Name, p)))
		}
		if err := release(); err != nil {
			log.Warn("session release failed", "pkg", "runner", "error", err)
			runErr = errors.Join(runErr, err)
		}
		res = report.NewResult(s.Name, r.cfg.Browser, r.now().Sub(start), runErr)
		res.Artifacts = shots
		if runErr == nil {
			log.Info("scenario passed", "pkg", "runner", "duration_ms", res.Duration.Milliseconds())
		}
	}()

	runErr = s.Run(ctx, scenario.NewEnv(r.cfg, surface))
	if runErr != nil {
		log.Warn("scenario failed", "pkg", "runner", "error", runErr)
		if r.cfg.ScreenshotOnFailure {
			if loc, err := r.saveScreenshot(ctx, runID, s.Name, surface); err != nil {
				log.Warn("failure screenshot not saved", "pkg", "runner", "error", err)
			} else {
				shots = append(shots, loc)
			}
		}
	}
	return res
}

func (r *Runner) saveScreenshot(ctx context.Context, runID, test string, surface pages.Surface) (string, error) {
	png, err := surface.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	key := artifacts.Key(runID, test, FailureShot)
	if err := r.store.Put(ctx, key, png, artifacts.ContentTypePNG); err != nil {
		return "", err
	}
	return r.store.Location(key), nil
}

func (r *Runner) publish(ctx context.Context, rep *report.Report) error {
	html, err := rep.HTML()
	if err != nil {
		return err
	}
	js, err := rep.JSON()
	if err != nil {
		return err
	}
	objects := []struct {
		name, contentType string
		body              []byte
	}{
		{ReportMarkdown, artifacts.ContentTypeMarkdown, []byte(rep.Markdown())},
		{ReportHTML, artifacts.ContentTypeHTML, html},
		{ReportJSON, artifacts.ContentTypeJSON, js},
	}
	// Publishing uses a detached context so an interrupted run still leaves
	// its report behind.
	ctx = context.WithoutCancel(ctx)
	for _, o := range objects {
		key := artifacts.Key(rep.RunID, SummaryDir, o.name)
		if err := r.store.Put(ctx, key, o.body, o.contentType); err != nil {
			return err
		}
		obs.From(ctx).Info("report published", "pkg", "runner", "location", r.store.Location(key))
	}
	return nil
}
