// Package stats computes the latest headline figures from the raw tables.
package stats

import (
	"errors"
	"fmt"
	"time"

	"github.com/lox/casewatch/internal/models"
)

// ErrNoOutcomes means the recovery rate is undefined because no recoveries or
// deaths have been recorded yet. Callers render "n/a" rather than a number.
var ErrNoOutcomes = errors.New("no recorded outcomes")

// Totals holds the grand totals across all regions at each table's latest
// date.
type Totals struct {
	Date      time.Time `json:"date"`
	Confirmed float64   `json:"confirmed"`
	Recovered float64   `json:"recovered"`
	Deceased  float64   `json:"deceased"`
}

// Latest computes grand totals from the three raw tables.
func Latest(confirmed, recovered, deceased *models.RawTable) (*Totals, error) {
	c, date, err := latestTotal(confirmed)
	if err != nil {
		return nil, fmt.Errorf("confirmed: %w", err)
	}
	r, _, err := latestTotal(recovered)
	if err != nil {
		return nil, fmt.Errorf("recovered: %w", err)
	}
	d, _, err := latestTotal(deceased)
	if err != nil {
		return nil, fmt.Errorf("deceased: %w", err)
	}
	return &Totals{Date: date, Confirmed: c, Recovered: r, Deceased: d}, nil
}

// RecoveryRate returns recovered / (recovered + deceased), or ErrNoOutcomes
// when the denominator is zero.
func (t *Totals) RecoveryRate() (float64, error) {
	denom := t.Recovered + t.Deceased
	if denom == 0 {
		return 0, ErrNoOutcomes
	}
	return t.Recovered / denom, nil
}

func latestTotal(table *models.RawTable) (float64, time.Time, error) {
	if table == nil || len(table.Dates) == 0 {
		return 0, time.Time{}, errors.New("empty table")
	}
	last := len(table.Dates) - 1
	return table.TotalAt(last), table.Dates[last], nil
}
