// Package view builds the plottable structures handed to the rendering
// boundary. Nothing else crosses that boundary.
package view

import (
	"sort"
	"time"

	"github.com/lox/casewatch/internal/models"
)

// Build binds an observed series and an optional forecast overlay into a
// ViewModel for one cohort and transform. Forecast dates that coincide with
// historical dates stay as distinct forecast points so the observed and
// fitted values are both visible on the same date; an absent forecast yields
// an empty overlay, never an error.
func Build(cohort string, transform models.Transform, observed models.ObservedSeries, forecast models.ForecastRecord) models.ViewModel {
	vm := models.ViewModel{
		Cohort:    cohort,
		Transform: transform,
		Observed:  make(models.ObservedSeries, len(observed)),
	}
	copy(vm.Observed, observed)
	if len(forecast) > 0 {
		vm.Forecast = make(models.ForecastRecord, len(forecast))
		copy(vm.Forecast, forecast)
	}
	return vm
}

// Axis returns the union of observed and forecast dates, sorted and
// de-duplicated, for overlay rendering on a common date axis.
func Axis(vm models.ViewModel) []time.Time {
	seen := make(map[time.Time]bool)
	var axis []time.Time
	for _, p := range vm.Observed {
		if !seen[p.Date] {
			seen[p.Date] = true
			axis = append(axis, p.Date)
		}
	}
	for _, p := range vm.Forecast {
		if !seen[p.Date] {
			seen[p.Date] = true
			axis = append(axis, p.Date)
		}
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })
	return axis
}
