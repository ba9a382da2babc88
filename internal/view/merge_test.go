package view

import (
	"testing"
	"time"

	"github.com/lox/casewatch/internal/models"
)

func day(i int) time.Time {
	return time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func TestBuildWithForecast(t *testing.T) {
	observed := models.ObservedSeries{
		{Date: day(0), Value: 10},
		{Date: day(1), Value: 20},
	}
	forecast := models.ForecastRecord{
		{Date: day(0), Point: 11, Lower: 9, Upper: 13},
		{Date: day(1), Point: 19, Lower: 17, Upper: 21},
		{Date: day(2), Point: 30, Lower: 25, Upper: 35},
	}

	vm := Build("A", models.TransformLinear, observed, forecast)

	if vm.Cohort != "A" || vm.Transform != models.TransformLinear {
		t.Errorf("unexpected binding: %+v", vm)
	}
	if len(vm.Observed) != 2 || len(vm.Forecast) != 3 {
		t.Fatalf("got %d observed, %d forecast", len(vm.Observed), len(vm.Forecast))
	}

	// Overlapping dates keep distinct observed and fitted points.
	if vm.Observed[0].Value != 10 || vm.Forecast[0].Point != 11 {
		t.Error("overlapping date must carry both observed and fitted values")
	}
}

func TestBuildWithoutForecast(t *testing.T) {
	observed := models.ObservedSeries{{Date: day(0), Value: 10}}

	vm := Build("A", models.TransformLog, observed, nil)

	if len(vm.Forecast) != 0 {
		t.Errorf("absent forecast must yield an empty overlay, got %d points", len(vm.Forecast))
	}
	if len(vm.Observed) != 1 {
		t.Errorf("observed series lost: %d points", len(vm.Observed))
	}
}

func TestBuildCopiesInputs(t *testing.T) {
	observed := models.ObservedSeries{{Date: day(0), Value: 10}}
	forecast := models.ForecastRecord{{Date: day(1), Point: 1, Lower: 0, Upper: 2}}

	vm := Build("A", models.TransformLinear, observed, forecast)
	observed[0].Value = 99
	forecast[0].Point = 99

	if vm.Observed[0].Value != 10 || vm.Forecast[0].Point != 1 {
		t.Error("view model shares backing arrays with its inputs")
	}
}

func TestAxis(t *testing.T) {
	vm := Build("A", models.TransformLinear,
		models.ObservedSeries{{Date: day(0), Value: 1}, {Date: day(1), Value: 2}},
		models.ForecastRecord{
			{Date: day(1), Point: 2},
			{Date: day(2), Point: 3},
		})

	axis := Axis(vm)
	if len(axis) != 3 {
		t.Fatalf("got %d axis dates, want 3", len(axis))
	}
	for i := 1; i < len(axis); i++ {
		if !axis[i].After(axis[i-1]) {
			t.Errorf("axis not strictly increasing at %d", i)
		}
	}
}
