package models

import "time"

// Transform identifies how an observed series has been scaled for display.
type Transform string

const (
	TransformLinear Transform = "linear"
	TransformLog    Transform = "log"
)

// RawTable is a region-by-date matrix of cumulative counts as fetched from an
// upstream source. Dates are chronological; every row in Counts has exactly
// len(Dates) cells. Duplicate region rows in the source are summed at load
// time, so region keys are unique here.
type RawTable struct {
	Dates  []time.Time
	Counts map[string][]float64
}

// TotalAt returns the grand total across all regions for the date at index i.
func (t *RawTable) TotalAt(i int) float64 {
	var total float64
	for _, row := range t.Counts {
		total += row[i]
	}
	return total
}

// CohortPoint is one date of a two-cohort split.
type CohortPoint struct {
	Date          time.Time
	Distinguished float64
	Other         float64
}

// CohortSeries splits a RawTable into a distinguished region and the sum of
// everyone else, one point per source date. Distinguished + Other equals the
// grand total for every date.
type CohortSeries struct {
	Region string
	Points []CohortPoint
}

// Distinguished returns the distinguished cohort as an observed series.
func (c *CohortSeries) Distinguished() ObservedSeries {
	series := make(ObservedSeries, len(c.Points))
	for i, p := range c.Points {
		series[i] = ObservedPoint{Date: p.Date, Value: p.Distinguished}
	}
	return series
}

// Other returns the complement cohort as an observed series.
func (c *CohortSeries) Other() ObservedSeries {
	series := make(ObservedSeries, len(c.Points))
	for i, p := range c.Points {
		series[i] = ObservedPoint{Date: p.Date, Value: p.Other}
	}
	return series
}

// ObservedPoint is one dated value of an observed series.
type ObservedPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ObservedSeries is a dated series of observed values, either raw counts or
// their natural logarithm. Dates are strictly increasing with no duplicates.
type ObservedSeries []ObservedPoint

// ForecastPoint is one dated forecast estimate with its interval bounds.
// Lower <= Point <= Upper holds for every point.
type ForecastPoint struct {
	Date  time.Time `json:"date"`
	Point float64   `json:"point"`
	Lower float64   `json:"lower"`
	Upper float64   `json:"upper"`
}

// ForecastRecord is a dated forecast series. Dates are strictly increasing
// with no gaps, spanning from the first historical date (when history is
// included) through the requested horizon.
type ForecastRecord []ForecastPoint

// ViewModel binds one observed series and an optional forecast overlay for a
// single cohort and transform. It is built fresh on every pipeline run and
// never mutated afterwards. An empty Forecast means the engine was
// unavailable and only the observed series should render.
type ViewModel struct {
	Cohort    string         `json:"cohort"`
	Transform Transform      `json:"transform"`
	Observed  ObservedSeries `json:"observed"`
	Forecast  ForecastRecord `json:"forecast,omitempty"`
}

// NewsItem is one headline from the news collaborator.
type NewsItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}
