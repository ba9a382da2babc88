package api

import (
	"github.com/lox/casewatch/internal/pipeline"
)

// PageConfig is the immutable presentation configuration passed to the
// rendering boundary. There is deliberately no process-wide mutable palette
// or timestamp; each page render carries its own copy.
type PageConfig struct {
	Title      string
	Background string
	Text       string
	Accent     string
	SourceNote string
	NewsNote   string
}

// DefaultPageConfig returns the stock dashboard styling.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Title:      "Case Count Update",
		Background: "#041C7C",
		Text:       "#7FDBFF",
		Accent:     "#f7370E",
		SourceNote: "(source: Johns Hopkins CSSE)",
		NewsNote:   "(source: newsapi.org)",
	}
}

// IndexData is everything the index template renders.
type IndexData struct {
	Page        PageConfig
	Snap        *pipeline.Snapshot
	LastUpdated string
	// RecoveryRate is pre-formatted: a percentage, or "n/a" when undefined.
	RecoveryRate string
}

// TotalsData renders the latest-totals partial.
type TotalsData struct {
	Snap         *pipeline.Snapshot
	RecoveryRate string
}
