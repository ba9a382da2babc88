package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lox/casewatch/internal/models"
)

// DefaultRegionColumn is the header the upstream CSSE tables key regions on.
const DefaultRegionColumn = "Country/Region"

// dateLayouts are tried in order when classifying header columns. The CSSE
// tables use m/d/yy labels.
var dateLayouts = []string{"1/2/06", "1/2/2006", "2006-01-02"}

// ParseTable parses a CSV region-by-date matrix. Columns whose headers do not
// parse as dates (coordinates, sub-region names) are dropped and never parsed
// as counts. Rows sharing a region key are summed into one row.
func ParseTable(data []byte, regionColumn string) (*models.RawTable, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv: %v", ErrMalformedSource, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: no data rows", ErrMalformedSource)
	}

	header := records[0]
	regionIdx := -1
	var dateIdx []int
	var dates []time.Time

	for i, label := range header {
		if strings.TrimSpace(label) == regionColumn {
			regionIdx = i
			continue
		}
		if d, ok := parseDateLabel(label); ok {
			dateIdx = append(dateIdx, i)
			dates = append(dates, d)
		}
	}

	if regionIdx < 0 {
		return nil, fmt.Errorf("%w: missing region column %q", ErrMalformedSource, regionColumn)
	}
	if len(dateIdx) == 0 {
		return nil, fmt.Errorf("%w: no date columns", ErrMalformedSource)
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("%w: date columns not strictly increasing at %q", ErrMalformedSource, header[dateIdx[i]])
		}
	}

	counts := make(map[string][]float64)
	for rowNum, record := range records[1:] {
		region := strings.TrimSpace(record[regionIdx])
		if region == "" {
			return nil, fmt.Errorf("%w: empty region key in row %d", ErrMalformedSource, rowNum+2)
		}

		row := counts[region]
		if row == nil {
			row = make([]float64, len(dateIdx))
			counts[region] = row
		}
		for j, col := range dateIdx {
			cell := strings.TrimSpace(record[col])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: non-numeric count %q in row %d", ErrMalformedSource, cell, rowNum+2)
			}
			row[j] += v
		}
	}

	return &models.RawTable{Dates: dates, Counts: counts}, nil
}

func parseDateLabel(label string) (time.Time, bool) {
	label = strings.TrimSpace(label)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, label); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
