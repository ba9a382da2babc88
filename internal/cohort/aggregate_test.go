package cohort

import (
	"errors"
	"testing"
	"time"

	"github.com/lox/casewatch/internal/ingest"
	"github.com/lox/casewatch/internal/models"
)

func testDates(n int) []time.Time {
	dates := make([]time.Time, n)
	start := time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

func TestAggregate(t *testing.T) {
	table := &models.RawTable{
		Dates: testDates(3),
		Counts: map[string][]float64{
			"A": {10, 20, 30},
			"B": {5, 5, 5},
		},
	}

	cs, err := Aggregate(table, "A")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	want := []models.CohortPoint{
		{Date: table.Dates[0], Distinguished: 10, Other: 5},
		{Date: table.Dates[1], Distinguished: 20, Other: 5},
		{Date: table.Dates[2], Distinguished: 30, Other: 5},
	}
	if len(cs.Points) != len(want) {
		t.Fatalf("got %d points, want %d", len(cs.Points), len(want))
	}
	for i, w := range want {
		if cs.Points[i] != w {
			t.Errorf("point %d = %+v, want %+v", i, cs.Points[i], w)
		}
	}
}

func TestAggregateConservation(t *testing.T) {
	table := &models.RawTable{
		Dates: testDates(4),
		Counts: map[string][]float64{
			"A": {1, 2, 3, 4},
			"B": {10, 11, 12, 13},
			"C": {0, 5, 5, 9},
		},
	}

	cs, err := Aggregate(table, "B")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	for i, p := range cs.Points {
		if got, want := p.Distinguished+p.Other, table.TotalAt(i); got != want {
			t.Errorf("date %d: distinguished+other = %v, want grand total %v", i, got, want)
		}
	}
}

func TestAggregateMissingRegion(t *testing.T) {
	table := &models.RawTable{
		Dates: testDates(2),
		Counts: map[string][]float64{
			"B": {7, 9},
		},
	}

	cs, err := Aggregate(table, "A")
	if err != nil {
		t.Fatalf("missing region must not error, got %v", err)
	}

	for i, p := range cs.Points {
		if p.Distinguished != 0 {
			t.Errorf("date %d: distinguished = %v, want 0", i, p.Distinguished)
		}
		if got, want := p.Other, table.TotalAt(i); got != want {
			t.Errorf("date %d: other = %v, want full total %v", i, got, want)
		}
	}
}

func TestAggregateNoDates(t *testing.T) {
	_, err := Aggregate(&models.RawTable{Counts: map[string][]float64{}}, "A")
	if !errors.Is(err, ingest.ErrMalformedSource) {
		t.Errorf("expected ErrMalformedSource, got %v", err)
	}
}
