package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SourceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casewatch_source_fetches_total",
			Help: "Total raw table fetches by source and outcome",
		},
		[]string{"source", "status"},
	)

	SourceFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "casewatch_source_fetch_seconds",
			Help:    "Raw table fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	ForecastFitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casewatch_forecast_fits_total",
			Help: "Total forecast engine fits by cohort and outcome",
		},
		[]string{"cohort", "status"},
	)

	ForecastFitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "casewatch_forecast_fit_seconds",
			Help:    "Forecast engine fit duration in seconds",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"cohort"},
	)

	NewsFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casewatch_news_fetches_total",
			Help: "Total news endpoint fetches by outcome",
		},
		[]string{"status"},
	)

	RefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casewatch_refreshes_total",
			Help: "Total pipeline refreshes by outcome",
		},
		[]string{"status"},
	)
)
