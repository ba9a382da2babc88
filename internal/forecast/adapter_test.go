package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lox/casewatch/internal/models"
)

type fakeEngine struct {
	result *Result
	err    error
}

func (f *fakeEngine) Fit(ctx context.Context, series models.ObservedSeries, horizonDays int, includeHistory bool, opts Options) (*Result, error) {
	return f.result, f.err
}

func obsSeries(n int) models.ObservedSeries {
	start := time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC)
	s := make(models.ObservedSeries, n)
	for i := range s {
		s[i] = models.ObservedPoint{Date: start.AddDate(0, 0, i), Value: float64(i + 1)}
	}
	return s
}

func datesFrom(start time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func TestAdapterForecast(t *testing.T) {
	series := obsSeries(5)
	engine := &fakeEngine{result: &Result{
		T:        datesFrom(series[0].Date, 7),
		Forecast: []float64{1, 2, 3, 4, 5, 6, 7},
		Lower:    []float64{0, 1, 2, 3, 4, 5, 6},
		Upper:    []float64{2, 3, 4, 5, 6, 7, 8},
	}}

	record, err := NewAdapter(engine, DefaultOptions()).Forecast(context.Background(), series, 2, true)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}

	if len(record) != 7 {
		t.Fatalf("got %d points, want 7", len(record))
	}
	if !record[0].Date.Equal(series[0].Date) {
		t.Errorf("first forecast date = %s, want first historical date", record[0].Date)
	}
	for i, p := range record {
		if p.Lower > p.Point || p.Point > p.Upper {
			t.Errorf("point %d: bounds out of order: %v <= %v <= %v", i, p.Lower, p.Point, p.Upper)
		}
		if i > 0 && !p.Date.After(record[i-1].Date) {
			t.Errorf("point %d: dates not strictly increasing", i)
		}
	}
}

func TestAdapterNormalizesBounds(t *testing.T) {
	series := obsSeries(3)
	// Quantile noise put the lower bound above the estimate.
	engine := &fakeEngine{result: &Result{
		T:        datesFrom(series[2].Date.AddDate(0, 0, 1), 1),
		Forecast: []float64{5},
		Lower:    []float64{5.1},
		Upper:    []float64{4.9},
	}}

	record, err := NewAdapter(engine, DefaultOptions()).Forecast(context.Background(), series, 1, false)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	p := record[0]
	if p.Lower > p.Point || p.Point > p.Upper {
		t.Errorf("bounds not normalized: %v <= %v <= %v", p.Lower, p.Point, p.Upper)
	}
}

func TestAdapterUnavailable(t *testing.T) {
	start := time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC)
	dup := models.ObservedSeries{
		{Date: start, Value: 1},
		{Date: start, Value: 2},
		{Date: start.AddDate(0, 0, 1), Value: 3},
	}

	tests := []struct {
		name   string
		engine Engine
		series models.ObservedSeries
	}{
		{"too few points", &fakeEngine{}, obsSeries(2)},
		{"duplicate dates", &fakeEngine{}, dup},
		{"engine error", &fakeEngine{err: errors.New("did not converge")}, obsSeries(5)},
		{"empty result", &fakeEngine{result: &Result{}}, obsSeries(5)},
		{"ragged result", &fakeEngine{result: &Result{
			T:        datesFrom(start, 2),
			Forecast: []float64{1},
			Lower:    []float64{0, 1},
			Upper:    []float64{2, 3},
		}}, obsSeries(5)},
		{"history mismatch", &fakeEngine{result: &Result{
			T:        datesFrom(start.AddDate(0, 0, 1), 1),
			Forecast: []float64{1},
			Lower:    []float64{0},
			Upper:    []float64{2},
		}}, obsSeries(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAdapter(tt.engine, DefaultOptions()).Forecast(context.Background(), tt.series, 1, true)
			if !errors.Is(err, ErrForecastUnavailable) {
				t.Errorf("expected ErrForecastUnavailable, got %v", err)
			}
		})
	}
}
