package forecast

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/lox/casewatch/internal/models"
)

// GrowthCurveEngine fits a linear trend to the (typically log-scale) series
// and simulates posterior draws around it: regression-parameter noise,
// observation noise, and Laplace-distributed trend breaks sampled at the
// historical changepoint rate. Quantiles of the draws become the interval
// bounds.
type GrowthCurveEngine struct {
	seed int64
}

func NewGrowthCurveEngine() *GrowthCurveEngine {
	return &GrowthCurveEngine{seed: time.Now().UnixNano()}
}

// NewSeededGrowthCurveEngine returns an engine with a fixed sampler seed.
func NewSeededGrowthCurveEngine(seed int64) *GrowthCurveEngine {
	return &GrowthCurveEngine{seed: seed}
}

func (e *GrowthCurveEngine) Fit(ctx context.Context, series models.ObservedSeries, horizonDays int, includeHistory bool, opts Options) (*Result, error) {
	if len(series) < MinFitPoints {
		return nil, fmt.Errorf("series too short to fit: %d points", len(series))
	}
	if horizonDays < 0 {
		return nil, fmt.Errorf("negative horizon: %d", horizonDays)
	}
	if opts.DrawCount < 2 {
		return nil, fmt.Errorf("draw count too small: %d", opts.DrawCount)
	}
	if opts.IntervalWidth <= 0 || opts.IntervalWidth >= 1 {
		return nil, fmt.Errorf("interval width out of (0,1): %v", opts.IntervalWidth)
	}

	start := series[0].Date
	n := len(series)
	x := make([]float64, n)
	y := make([]float64, n)
	for i, p := range series {
		x[i] = p.Date.Sub(start).Hours() / 24
		y[i] = p.Value
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)

	resid := make([]float64, n)
	for i := range y {
		resid[i] = y[i] - (alpha + beta*x[i])
	}
	sigma := stat.StdDev(resid, nil)
	if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsNaN(sigma) {
		return nil, fmt.Errorf("fit did not converge")
	}

	xMean := stat.Mean(x, nil)
	var sxx float64
	for _, v := range x {
		sxx += (v - xMean) * (v - xMean)
	}
	if sxx == 0 {
		return nil, fmt.Errorf("degenerate time axis")
	}
	seBeta := sigma / math.Sqrt(sxx)
	seAlpha := sigma * math.Sqrt(1/float64(n)+xMean*xMean/sxx)

	// Future trend breaks arrive at the rate the candidate changepoints
	// imply over the observed window.
	lastX := x[n-1]
	cpProb := 0.0
	if lastX > 0 {
		cpProb = math.Min(1, float64(opts.ChangepointCount)/lastX)
	}

	outX, outT := e.outputAxis(series, horizonDays, includeHistory)
	histLen := 0
	if includeHistory {
		histLen = n
	}

	samples := make([][]float64, len(outX))
	for i := range samples {
		samples[i] = make([]float64, opts.DrawCount)
	}

	rng := rand.New(rand.NewSource(e.seed))
	for d := 0; d < opts.DrawCount; d++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		alphaD := alpha + rng.NormFloat64()*seAlpha
		betaD := beta + rng.NormFloat64()*seBeta

		for i := 0; i < histLen; i++ {
			samples[i][d] = alphaD + betaD*outX[i] + rng.NormFloat64()*sigma
		}

		slope := betaD
		v := alphaD + betaD*lastX
		prev := lastX
		for i := histLen; i < len(outX); i++ {
			for day := prev + 1; day <= outX[i]; day++ {
				if rng.Float64() < cpProb {
					slope += laplaceRand(rng, opts.ChangepointPriorScale)
				}
				v += slope
			}
			prev = outX[i]
			samples[i][d] = v + rng.NormFloat64()*sigma
		}
	}

	res := &Result{
		T:        outT,
		Forecast: make([]float64, len(outX)),
		Upper:    make([]float64, len(outX)),
		Lower:    make([]float64, len(outX)),
	}
	pLow := (1 - opts.IntervalWidth) / 2
	pHigh := 1 - pLow
	for i, t := range outX {
		res.Forecast[i] = alpha + beta*t
		sort.Float64s(samples[i])
		res.Lower[i] = stat.Quantile(pLow, stat.Empirical, samples[i], nil)
		res.Upper[i] = stat.Quantile(pHigh, stat.Empirical, samples[i], nil)
	}

	return res, nil
}

// outputAxis builds the fitted time axis: the historical dates when history
// is requested, then horizonDays daily steps past the last observation.
func (e *GrowthCurveEngine) outputAxis(series models.ObservedSeries, horizonDays int, includeHistory bool) ([]float64, []time.Time) {
	start := series[0].Date
	last := series[len(series)-1].Date
	lastX := last.Sub(start).Hours() / 24

	var outX []float64
	var outT []time.Time
	if includeHistory {
		for _, p := range series {
			outX = append(outX, p.Date.Sub(start).Hours()/24)
			outT = append(outT, p.Date)
		}
	}
	for i := 1; i <= horizonDays; i++ {
		outX = append(outX, lastX+float64(i))
		outT = append(outT, last.AddDate(0, 0, i))
	}
	return outX, outT
}

// laplaceRand samples Laplace(0, scale) by inverse CDF.
func laplaceRand(rng *rand.Rand, scale float64) float64 {
	u := rng.Float64() - 0.5
	if u == 0 {
		return 0
	}
	sign := 1.0
	if u < 0 {
		sign = -1.0
	}
	return -scale * sign * math.Log(1-2*math.Abs(u))
}
