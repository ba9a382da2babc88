// Package growth converts cumulative counts to the log scale used for
// multiplicative-growth modelling.
package growth

import (
	"errors"
	"fmt"
	"math"

	"github.com/lox/casewatch/internal/models"
)

// ErrNonPositiveValue means a count of zero or less was handed to the log
// transform. The transform never substitutes an epsilon: log of zero is
// undefined for growth-curve modelling, and clamping it would silently
// distort the fit. Callers pre-filter or accept the failure.
var ErrNonPositiveValue = errors.New("non-positive value in growth series")

// Log returns the natural logarithm of every value in series.
func Log(series models.ObservedSeries) (models.ObservedSeries, error) {
	out := make(models.ObservedSeries, len(series))
	for i, p := range series {
		if p.Value <= 0 {
			return nil, fmt.Errorf("%w: %v on %s", ErrNonPositiveValue, p.Value, p.Date.Format("2006-01-02"))
		}
		out[i] = models.ObservedPoint{Date: p.Date, Value: math.Log(p.Value)}
	}
	return out, nil
}
