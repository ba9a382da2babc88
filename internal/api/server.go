package api

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/casewatch/internal/forecast"
	"github.com/lox/casewatch/internal/growth"
	"github.com/lox/casewatch/internal/ingest"
	"github.com/lox/casewatch/internal/models"
	"github.com/lox/casewatch/internal/news"
	"github.com/lox/casewatch/internal/pipeline"
)

//go:embed templates/*
var templateFS embed.FS

type Server struct {
	pipeline *pipeline.Pipeline
	port     string
	page     PageConfig
	tmpl     *template.Template
}

func NewServer(p *pipeline.Pipeline, port string, page PageConfig) *Server {
	funcs := template.FuncMap{
		"jsonify": func(v any) (template.JS, error) {
			b, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return template.JS(b), nil
		},
	}
	tmpl := template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

	return &Server{
		pipeline: p,
		port:     port,
		page:     page,
		tmpl:     tmpl,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/partials/totals", s.handleTotalsPartial)
	mux.HandleFunc("/partials/news", s.handleNewsPartial)
	mux.HandleFunc("/api/dashboard", s.handleAPIDashboard)
	mux.HandleFunc("/api/series", s.handleAPISeries)
	mux.HandleFunc("/api/forecast", s.handleAPIForecast)
	mux.HandleFunc("/api/totals", s.handleAPITotals)
	mux.HandleFunc("/api/news", s.handleAPINews)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	snap, err := s.pipeline.Refresh(r.Context())
	if err != nil {
		log.Printf("api: refresh: %v", err)
		http.Error(w, "upstream data unavailable", http.StatusBadGateway)
		return
	}

	data := IndexData{
		Page:         s.page,
		Snap:         snap,
		LastUpdated:  snap.GeneratedAt.Format("02/01/2006, 15:04"),
		RecoveryRate: formatRate(snap.RecoveryRate),
	}
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("api: template error: %v", err)
	}
}

func (s *Server) handleTotalsPartial(w http.ResponseWriter, r *http.Request) {
	totals, err := s.pipeline.Totals(r.Context())
	if err != nil {
		log.Printf("api: totals: %v", err)
		http.Error(w, "totals unavailable", http.StatusBadGateway)
		return
	}

	snap := &pipeline.Snapshot{Totals: totals}
	var ratePtr *float64
	if rate, err := totals.RecoveryRate(); err == nil {
		ratePtr = &rate
	}
	data := TotalsData{Snap: snap, RecoveryRate: formatRate(ratePtr)}
	if err := s.tmpl.ExecuteTemplate(w, "totals.html", data); err != nil {
		log.Printf("api: template error: %v", err)
	}
}

func (s *Server) handleNewsPartial(w http.ResponseWriter, r *http.Request) {
	items, err := s.pipeline.News(r.Context())
	if err != nil {
		// Recoverable by contract: an empty panel, never an error page.
		log.Printf("api: news: %v", err)
		items = nil
	}
	if err := s.tmpl.ExecuteTemplate(w, "news.html", &pipeline.Snapshot{News: items}); err != nil {
		log.Printf("api: template error: %v", err)
	}
}

func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := s.pipeline.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleAPISeries(w http.ResponseWriter, r *http.Request) {
	cohortKey := r.URL.Query().Get("cohort")
	transform := models.Transform(r.URL.Query().Get("transform"))
	if transform == "" {
		transform = models.TransformLinear
	}
	if transform != models.TransformLinear && transform != models.TransformLog {
		http.Error(w, fmt.Sprintf("unknown transform %q", transform), http.StatusBadRequest)
		return
	}

	series, err := s.pipeline.Observed(r.Context(), cohortKey, transform)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, series)
}

func (s *Server) handleAPIForecast(w http.ResponseWriter, r *http.Request) {
	record, err := s.pipeline.Forecast(r.Context(), r.URL.Query().Get("cohort"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, record)
}

func (s *Server) handleAPITotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.pipeline.Totals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := struct {
		Totals       any      `json:"totals"`
		RecoveryRate *float64 `json:"recovery_rate"`
	}{Totals: totals}
	if rate, err := totals.RecoveryRate(); err == nil {
		resp.RecoveryRate = &rate
	}
	writeJSON(w, resp)
}

func (s *Server) handleAPINews(w http.ResponseWriter, r *http.Request) {
	items, err := s.pipeline.News(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, struct {
		Items []models.NewsItem `json:"items"`
	}{Items: items})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}

// writeError maps the pipeline's error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ingest.ErrSourceUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, ingest.ErrMalformedSource):
		status = http.StatusBadGateway
	case errors.Is(err, forecast.ErrForecastUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, news.ErrNewsUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, growth.ErrNonPositiveValue):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrUnknownCohort):
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func formatRate(rate *float64) string {
	if rate == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *rate*100)
}
