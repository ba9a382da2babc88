// Package pipeline orchestrates one refresh: fetch, aggregate, transform,
// fit, merge. A Pipeline holds no mutable state; every Refresh builds a fresh
// Snapshot and concurrent refreshes share nothing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lox/casewatch/internal/cohort"
	"github.com/lox/casewatch/internal/forecast"
	"github.com/lox/casewatch/internal/growth"
	"github.com/lox/casewatch/internal/ingest"
	"github.com/lox/casewatch/internal/metrics"
	"github.com/lox/casewatch/internal/models"
	"github.com/lox/casewatch/internal/news"
	"github.com/lox/casewatch/internal/stats"
	"github.com/lox/casewatch/internal/summary"
	"github.com/lox/casewatch/internal/view"
)

// Cohort keys used by the API layer.
const (
	CohortDistinguished = "distinguished"
	CohortOther         = "other"
)

// ErrUnknownCohort means a cohort key other than the two defined ones.
var ErrUnknownCohort = errors.New("unknown cohort")

type Config struct {
	ConfirmedURL string
	RecoveredURL string
	DeceasedURL  string
	Region       string
	HorizonDays  int
	FitTimeout   time.Duration
	NewsMax      int
}

type Pipeline struct {
	cfg     Config
	loader  *ingest.Loader
	adapter *forecast.Adapter
	news    *news.Client       // nil = news panel disabled
	summ    *summary.Generator // nil = summary panel disabled
}

func New(cfg Config, loader *ingest.Loader, adapter *forecast.Adapter) *Pipeline {
	if cfg.NewsMax <= 0 {
		cfg.NewsMax = 10
	}
	if cfg.FitTimeout <= 0 {
		cfg.FitTimeout = 2 * time.Minute
	}
	return &Pipeline{cfg: cfg, loader: loader, adapter: adapter}
}

// SetNewsClient enables the optional news panel.
func (p *Pipeline) SetNewsClient(client *news.Client) {
	p.news = client
}

// SetSummaryGenerator enables the optional AI summary panel.
func (p *Pipeline) SetSummaryGenerator(gen *summary.Generator) {
	p.summ = gen
}

// CohortViews carries the two plottable views for one cohort. Growth is nil
// when the log transform failed (a zero count anywhere in the series); that
// is fatal to the growth view only, never to the linear one.
type CohortViews struct {
	Linear models.ViewModel  `json:"linear"`
	Growth *models.ViewModel `json:"growth,omitempty"`
}

// Snapshot is everything one refresh produced. It is immutable once returned
// and discarded after rendering.
type Snapshot struct {
	GeneratedAt   time.Time          `json:"generated_at"`
	Region        string             `json:"region"`
	Distinguished CohortViews        `json:"distinguished"`
	Other         CohortViews        `json:"other"`
	Totals        *stats.Totals      `json:"totals,omitempty"`
	RecoveryRate  *float64           `json:"recovery_rate,omitempty"`
	News          []models.NewsItem  `json:"news,omitempty"`
	Summary       string             `json:"summary,omitempty"`
	Degraded      []string           `json:"degraded,omitempty"`
}

// Refresh runs the full pipeline once. Only a failed confirmed-table fetch is
// fatal; forecasts, totals, news and the summary degrade individually with a
// note in Snapshot.Degraded.
func (p *Pipeline) Refresh(ctx context.Context) (*Snapshot, error) {
	confirmed, err := p.loader.Load(ctx, p.cfg.ConfirmedURL)
	if err != nil {
		metrics.RefreshesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load confirmed table: %w", err)
	}

	series, err := cohort.Aggregate(confirmed, p.cfg.Region)
	if err != nil {
		metrics.RefreshesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("aggregate cohorts: %w", err)
	}

	snap := &Snapshot{
		GeneratedAt: time.Now(),
		Region:      p.cfg.Region,
	}

	// Cohorts share no state, so their fits run concurrently. Each fit is
	// the only unbounded-latency call and gets its own deadline.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		snap.Distinguished = p.buildCohort(ctx, p.cfg.Region, series.Distinguished())
	}()
	go func() {
		defer wg.Done()
		snap.Other = p.buildCohort(ctx, "Outside "+p.cfg.Region, series.Other())
	}()
	wg.Wait()

	if snap.Distinguished.Growth == nil {
		snap.Degraded = append(snap.Degraded, "growth view unavailable for "+p.cfg.Region)
	}
	if snap.Other.Growth == nil {
		snap.Degraded = append(snap.Degraded, "growth view unavailable for Outside "+p.cfg.Region)
	}

	if totals, err := p.totalsFrom(ctx, confirmed); err != nil {
		log.Printf("pipeline: totals unavailable: %v", err)
		snap.Degraded = append(snap.Degraded, "totals unavailable")
	} else {
		snap.Totals = totals
		if rate, err := totals.RecoveryRate(); err != nil {
			log.Printf("pipeline: recovery rate undefined: %v", err)
		} else {
			snap.RecoveryRate = &rate
		}
	}

	if p.news != nil {
		if items, err := p.news.Latest(ctx, p.cfg.NewsMax); err != nil {
			log.Printf("pipeline: news unavailable: %v", err)
			snap.Degraded = append(snap.Degraded, "news unavailable")
		} else {
			snap.News = items
		}
	}

	if p.summ != nil && snap.Totals != nil {
		if text, err := p.summ.Summarize(ctx, p.cfg.Region, snap.Totals, snap.RecoveryRate); err != nil {
			log.Printf("pipeline: summary unavailable: %v", err)
		} else {
			snap.Summary = text
		}
	}

	metrics.RefreshesTotal.WithLabelValues("ok").Inc()
	return snap, nil
}

// buildCohort produces the linear view and, when the series supports it, the
// log-scale growth view with its forecast overlay. A failed fit keeps the
// observed log series with an empty overlay.
func (p *Pipeline) buildCohort(ctx context.Context, name string, observed models.ObservedSeries) CohortViews {
	views := CohortViews{
		Linear: view.Build(name, models.TransformLinear, observed, nil),
	}

	logSeries, err := growth.Log(observed)
	if err != nil {
		log.Printf("pipeline: %s: %v", name, err)
		metrics.ForecastFitsTotal.WithLabelValues(name, "skipped").Inc()
		return views
	}

	fitCtx, cancel := context.WithTimeout(ctx, p.cfg.FitTimeout)
	defer cancel()

	start := time.Now()
	record, err := p.adapter.Forecast(fitCtx, logSeries, p.cfg.HorizonDays, true)
	metrics.ForecastFitDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Printf("pipeline: %s: %v", name, err)
		metrics.ForecastFitsTotal.WithLabelValues(name, "error").Inc()
		vm := view.Build(name, models.TransformLog, logSeries, nil)
		views.Growth = &vm
		return views
	}

	metrics.ForecastFitsTotal.WithLabelValues(name, "ok").Inc()
	vm := view.Build(name, models.TransformLog, logSeries, record)
	views.Growth = &vm
	return views
}

// Totals fetches all three tables and computes the latest grand totals.
func (p *Pipeline) Totals(ctx context.Context) (*stats.Totals, error) {
	confirmed, err := p.loader.Load(ctx, p.cfg.ConfirmedURL)
	if err != nil {
		return nil, fmt.Errorf("load confirmed table: %w", err)
	}
	return p.totalsFrom(ctx, confirmed)
}

func (p *Pipeline) totalsFrom(ctx context.Context, confirmed *models.RawTable) (*stats.Totals, error) {
	recovered, err := p.loader.Load(ctx, p.cfg.RecoveredURL)
	if err != nil {
		return nil, fmt.Errorf("load recovered table: %w", err)
	}
	deceased, err := p.loader.Load(ctx, p.cfg.DeceasedURL)
	if err != nil {
		return nil, fmt.Errorf("load deceased table: %w", err)
	}
	return stats.Latest(confirmed, recovered, deceased)
}

// News fetches the latest headlines, or an ErrNewsUnavailable-wrapped error
// when the panel is disabled or the endpoint fails.
func (p *Pipeline) News(ctx context.Context) ([]models.NewsItem, error) {
	if p.news == nil {
		return nil, fmt.Errorf("%w: no API key configured", news.ErrNewsUnavailable)
	}
	return p.news.Latest(ctx, p.cfg.NewsMax)
}

// Observed returns one cohort's observed series under the requested
// transform, re-fetching the confirmed table.
func (p *Pipeline) Observed(ctx context.Context, cohortKey string, transform models.Transform) (models.ObservedSeries, error) {
	series, _, err := p.cohortSeries(ctx, cohortKey)
	if err != nil {
		return nil, err
	}
	if transform == models.TransformLog {
		return growth.Log(series)
	}
	return series, nil
}

// Forecast fits one cohort's log-scale series and returns the normalized
// record, including backtested history.
func (p *Pipeline) Forecast(ctx context.Context, cohortKey string) (models.ForecastRecord, error) {
	series, name, err := p.cohortSeries(ctx, cohortKey)
	if err != nil {
		return nil, err
	}

	logSeries, err := growth.Log(series)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", forecast.ErrForecastUnavailable, err)
	}

	fitCtx, cancel := context.WithTimeout(ctx, p.cfg.FitTimeout)
	defer cancel()

	start := time.Now()
	record, err := p.adapter.Forecast(fitCtx, logSeries, p.cfg.HorizonDays, true)
	metrics.ForecastFitDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ForecastFitsTotal.WithLabelValues(name, "error").Inc()
		return nil, err
	}
	metrics.ForecastFitsTotal.WithLabelValues(name, "ok").Inc()
	return record, nil
}

func (p *Pipeline) cohortSeries(ctx context.Context, cohortKey string) (models.ObservedSeries, string, error) {
	confirmed, err := p.loader.Load(ctx, p.cfg.ConfirmedURL)
	if err != nil {
		return nil, "", fmt.Errorf("load confirmed table: %w", err)
	}
	series, err := cohort.Aggregate(confirmed, p.cfg.Region)
	if err != nil {
		return nil, "", err
	}

	switch cohortKey {
	case CohortOther:
		return series.Other(), "Outside " + p.cfg.Region, nil
	case CohortDistinguished, "":
		return series.Distinguished(), p.cfg.Region, nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownCohort, cohortKey)
	}
}
