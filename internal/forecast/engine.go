// Package forecast wraps a growth-curve forecasting capability behind a
// stable contract. The fitting procedure is opaque to callers: it is
// configured only through the named options here, may take seconds to minutes
// per fit, and is the one call in the system worth a context deadline.
package forecast

import (
	"context"
	"errors"
	"time"

	"github.com/lox/casewatch/internal/models"
)

// ErrForecastUnavailable means the engine could not produce a usable fit:
// too few points, non-convergence, or a cancelled fit. Callers degrade to the
// observed-only view rather than aborting the refresh.
var ErrForecastUnavailable = errors.New("forecast unavailable")

// MinFitPoints is the smallest series the adapter will hand to an engine.
// Two points pin a slope with nothing left over to estimate spread from.
const MinFitPoints = 3

// Options are the named knobs exposed by the engine. Everything else about
// the fit is internal.
type Options struct {
	// ChangepointCount is the number of candidate structural breaks in trend.
	ChangepointCount int
	// ChangepointPriorScale regularizes the magnitude of trend breaks.
	ChangepointPriorScale float64
	// DrawCount is the number of posterior samples per fit.
	DrawCount int
	// IntervalWidth is the central-mass fraction covered by the returned
	// bounds, e.g. 0.8 for an 80% interval.
	IntervalWidth float64
}

// DefaultOptions mirror the settings the dashboard has always fitted with.
func DefaultOptions() Options {
	return Options{
		ChangepointCount:      25,
		ChangepointPriorScale: 0.01,
		DrawCount:             2500,
		IntervalWidth:         0.8,
	}
}

// Result is the raw engine output: parallel slices of equal length, one entry
// per fitted or projected time point.
type Result struct {
	T        []time.Time
	Forecast []float64
	Upper    []float64
	Lower    []float64
}

// Engine is a synchronous, possibly slow forecasting capability. Fit blocks
// until the sampler finishes or ctx is done.
type Engine interface {
	Fit(ctx context.Context, series models.ObservedSeries, horizonDays int, includeHistory bool, opts Options) (*Result, error)
}
