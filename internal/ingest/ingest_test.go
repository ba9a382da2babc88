package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const sampleCSV = `Province/State,Country/Region,Lat,Long,1/22/20,1/23/20,1/24/20
Hubei,Mainland China,30.97,112.27,444,444,549
Guangdong,Mainland China,23.34,113.42,26,32,53
,Thailand,15.0,101.0,2,3,5
,Japan,36.0,138.0,2,1,2
`

func TestParseTable(t *testing.T) {
	table, err := ParseTable([]byte(sampleCSV), DefaultRegionColumn)
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}

	if len(table.Dates) != 3 {
		t.Fatalf("expected 3 date columns, got %d", len(table.Dates))
	}
	if got := table.Dates[0].Format("2006-01-02"); got != "2020-01-22" {
		t.Errorf("first date = %s, want 2020-01-22", got)
	}

	// Duplicate region rows are summed, not rejected.
	china := table.Counts["Mainland China"]
	if china == nil {
		t.Fatal("missing Mainland China row")
	}
	want := []float64{470, 476, 602}
	for i, w := range want {
		if china[i] != w {
			t.Errorf("china[%d] = %v, want %v", i, china[i], w)
		}
	}

	if len(table.Counts) != 3 {
		t.Errorf("expected 3 regions, got %d", len(table.Counts))
	}

	// Coordinate columns are dropped, never parsed as counts.
	if got := table.TotalAt(0); got != 474 {
		t.Errorf("grand total at first date = %v, want 474", got)
	}
}

func TestParseTableMalformed(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"missing region column", "Province,Lat,Long,1/22/20\nHubei,30,112,444\n"},
		{"no date columns", "Province/State,Country/Region,Lat,Long\nHubei,China,30,112\n"},
		{"no data rows", "Country/Region,1/22/20\n"},
		{"non-numeric count", "Country/Region,1/22/20\nChina,abc\n"},
		{"empty region key", "Country/Region,1/22/20\n ,444\n"},
		{"dates out of order", "Country/Region,1/23/20,1/22/20\nChina,1,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable([]byte(tt.csv), DefaultRegionColumn)
			if !errors.Is(err, ErrMalformedSource) {
				t.Errorf("expected ErrMalformedSource, got %v", err)
			}
		})
	}
}

func TestLoadHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	table, err := NewLoader().Load(context.Background(), srv.URL+"/confirmed.csv")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(table.Counts) != 3 {
		t.Errorf("expected 3 regions, got %d", len(table.Counts))
	}
}

func TestLoadHTTPNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewLoader().Load(context.Background(), srv.URL+"/missing.csv")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "confirmed.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := NewLoader().Load(context.Background(), "file://"+path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(table.Dates) != 3 {
		t.Errorf("expected 3 dates, got %d", len(table.Dates))
	}
}

func TestLoadUnsupportedScheme(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), "gopher://example.com/table")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}
