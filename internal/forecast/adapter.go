package forecast

import (
	"context"
	"fmt"

	"github.com/lox/casewatch/internal/models"
)

// Adapter normalizes engine output into the canonical ForecastRecord and
// enforces its invariants: strictly increasing dates, lower <= point <= upper
// everywhere, and a first date matching the first historical date when
// history is included.
type Adapter struct {
	engine Engine
	opts   Options
}

func NewAdapter(engine Engine, opts Options) *Adapter {
	return &Adapter{engine: engine, opts: opts}
}

// Forecast fits series and projects horizonDays past its last date. Any
// failure (too few points, bad input dates, engine error, malformed engine
// output) comes back as ErrForecastUnavailable so callers render the
// observed-only view.
func (a *Adapter) Forecast(ctx context.Context, series models.ObservedSeries, horizonDays int, includeHistory bool) (models.ForecastRecord, error) {
	if len(series) < MinFitPoints {
		return nil, fmt.Errorf("%w: %d points, need at least %d", ErrForecastUnavailable, len(series), MinFitPoints)
	}
	for i := 1; i < len(series); i++ {
		if !series[i].Date.After(series[i-1].Date) {
			return nil, fmt.Errorf("%w: series dates not strictly increasing at %s", ErrForecastUnavailable, series[i].Date.Format("2006-01-02"))
		}
	}

	res, err := a.engine.Fit(ctx, series, horizonDays, includeHistory, a.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForecastUnavailable, err)
	}

	if len(res.T) == 0 {
		return nil, fmt.Errorf("%w: engine returned no points", ErrForecastUnavailable)
	}
	if len(res.Forecast) != len(res.T) || len(res.Upper) != len(res.T) || len(res.Lower) != len(res.T) {
		return nil, fmt.Errorf("%w: engine returned ragged result", ErrForecastUnavailable)
	}
	if includeHistory && !res.T[0].Equal(series[0].Date) {
		return nil, fmt.Errorf("%w: history requested but first fitted date is %s", ErrForecastUnavailable, res.T[0].Format("2006-01-02"))
	}

	record := make(models.ForecastRecord, len(res.T))
	for i, t := range res.T {
		if i > 0 && !t.After(res.T[i-1]) {
			return nil, fmt.Errorf("%w: engine dates not strictly increasing at %s", ErrForecastUnavailable, t.Format("2006-01-02"))
		}
		point := res.Forecast[i]
		lower := res.Lower[i]
		upper := res.Upper[i]
		// Sampling noise can nudge a quantile past the point estimate;
		// the record's ordering invariant wins.
		if lower > point {
			lower = point
		}
		if upper < point {
			upper = point
		}
		record[i] = models.ForecastPoint{Date: t, Point: point, Lower: lower, Upper: upper}
	}

	return record, nil
}
