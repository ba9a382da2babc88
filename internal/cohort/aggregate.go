// Package cohort collapses a raw region-by-date table into two comparable
// cohorts: a distinguished region and the sum of everyone else.
package cohort

import (
	"fmt"
	"log"

	"github.com/lox/casewatch/internal/ingest"
	"github.com/lox/casewatch/internal/models"
)

// Aggregate derives a CohortSeries from table for the distinguished region.
// A missing region key is a soft failure: the distinguished cohort is zero for
// every date and the complement carries the full grand total. The source
// schema is not contractually guaranteed to contain any particular region, so
// this must not hard-fail.
func Aggregate(table *models.RawTable, region string) (*models.CohortSeries, error) {
	if table == nil || len(table.Dates) == 0 {
		return nil, fmt.Errorf("%w: no date columns to aggregate", ingest.ErrMalformedSource)
	}

	distinguished, ok := table.Counts[region]
	if !ok {
		log.Printf("cohort: region %q absent from table, treating as zero", region)
	}

	points := make([]models.CohortPoint, len(table.Dates))
	for i, date := range table.Dates {
		var dist float64
		if ok {
			dist = distinguished[i]
		}
		points[i] = models.CohortPoint{
			Date:          date,
			Distinguished: dist,
			Other:         table.TotalAt(i) - dist,
		}
	}

	return &models.CohortSeries{Region: region, Points: points}, nil
}
