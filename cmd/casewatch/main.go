package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/lox/casewatch/internal/api"
	"github.com/lox/casewatch/internal/forecast"
	"github.com/lox/casewatch/internal/ingest"
	"github.com/lox/casewatch/internal/news"
	"github.com/lox/casewatch/internal/pipeline"
	"github.com/lox/casewatch/internal/summary"
)

const csseBase = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series/"

var cli struct {
	Port string `env:"PORT" default:"3000" help:"HTTP server port"`

	ConfirmedURL string `env:"CONFIRMED_URL" default:"${csse_base}time_series_19-covid-Confirmed.csv" help:"Confirmed cases table locator (https, ftp or file scheme)"`
	RecoveredURL string `env:"RECOVERED_URL" default:"${csse_base}time_series_19-covid-Recovered.csv" help:"Recovered cases table locator"`
	DeceasedURL  string `env:"DECEASED_URL" default:"${csse_base}time_series_19-covid-Deaths.csv" help:"Deceased cases table locator"`

	Region       string `env:"REGION" default:"Mainland China" help:"Distinguished region; everything else is aggregated as its complement"`
	RegionColumn string `env:"REGION_COLUMN" default:"Country/Region" help:"CSV header the tables key regions on"`

	HorizonDays           int           `env:"HORIZON_DAYS" default:"7" help:"Forecast days past the last observation"`
	IntervalWidth         float64       `env:"INTERVAL_WIDTH" default:"0.8" help:"Central-mass fraction covered by the forecast bounds"`
	DrawCount             int           `env:"DRAW_COUNT" default:"2500" help:"Posterior samples per fit"`
	ChangepointCount      int           `env:"CHANGEPOINT_COUNT" default:"25" help:"Candidate structural breaks in trend"`
	ChangepointPriorScale float64       `env:"CHANGEPOINT_PRIOR_SCALE" default:"0.01" help:"Regularization on changepoint magnitude"`
	FitTimeout            time.Duration `env:"FIT_TIMEOUT" default:"2m" help:"Deadline for one forecast fit"`

	NewsAPIKey string `env:"NEWS_API_KEY" help:"newsapi.org token; news panel is disabled when empty"`
	NewsQuery  string `env:"NEWS_QUERY" default:"coronavirus" help:"News search keyword"`
	NewsMax    int    `env:"NEWS_MAX" default:"10" help:"Maximum headlines to show"`

	Once bool `help:"Run one refresh, print the snapshot as JSON and exit (for testing)"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("casewatch"),
		kong.Description("Cumulative case-count dashboard with growth-curve forecasts."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.Vars{"csse_base": csseBase},
	)

	loader := ingest.NewLoaderWithRegionColumn(cli.RegionColumn)
	adapter := forecast.NewAdapter(forecast.NewGrowthCurveEngine(), forecast.Options{
		ChangepointCount:      cli.ChangepointCount,
		ChangepointPriorScale: cli.ChangepointPriorScale,
		DrawCount:             cli.DrawCount,
		IntervalWidth:         cli.IntervalWidth,
	})

	pl := pipeline.New(pipeline.Config{
		ConfirmedURL: cli.ConfirmedURL,
		RecoveredURL: cli.RecoveredURL,
		DeceasedURL:  cli.DeceasedURL,
		Region:       cli.Region,
		HorizonDays:  cli.HorizonDays,
		FitTimeout:   cli.FitTimeout,
		NewsMax:      cli.NewsMax,
	}, loader, adapter)

	if cli.NewsAPIKey != "" {
		pl.SetNewsClient(news.NewClient(cli.NewsAPIKey, cli.NewsQuery))
	} else {
		log.Println("news panel disabled (no NEWS_API_KEY)")
	}

	if gen, err := summary.NewGenerator(); err != nil {
		log.Printf("summary panel disabled: %v", err)
	} else {
		pl.SetSummaryGenerator(gen)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cli.Once {
		snap, err := pl.Refresh(ctx)
		if err != nil {
			log.Fatalf("refresh: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			log.Fatalf("encode snapshot: %v", err)
		}
		return
	}

	server := api.NewServer(pl, cli.Port, api.DefaultPageConfig())
	log.Printf("starting server on :%s", cli.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
