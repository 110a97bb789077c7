package calculator

import (
	"math"

	"FirmSim/internal/model"
)

// minSeriesForFit is the shortest series an AR(1) regression is fitted on.
const minSeriesForFit = 3

// AR1Forecast projects the next value of series with a first-order autoregression
// fitted by least squares on consecutive pairs, scaled by trend.
// Short series fall back to last*trend with a 5% standard deviation.
func AR1Forecast(series []float64, trend float64) model.Estimate {
	if len(series) == 0 {
		return model.Estimate{}
	}
	trend = finite(trend)
	last := finite(series[len(series)-1])

	if len(series) < minSeriesForFit {
		return model.Estimate{Mean: last * trend, SD: last * 0.05}
	}

	n := len(series) - 1
	var sumX, sumY, sumXY, sumXX float64
	for i := 0; i < n; i++ {
		x, y := finite(series[i]), finite(series[i+1])
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)

	slope := 0.0
	if denom := fn*sumXX - sumX*sumX; denom != 0 {
		slope = (fn*sumXY - sumX*sumY) / denom
	}
	intercept := (sumY - slope*sumX) / fn

	mean := (intercept + slope*last) * trend
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		mean = last * trend
	}

	var sumSqResid float64
	for i := 0; i < n; i++ {
		resid := finite(series[i+1]) - (intercept + slope*finite(series[i]))
		sumSqResid += resid * resid
	}
	dof := float64(n - 2)
	if dof <= 0 {
		dof = 1
	}
	se := finite(math.Sqrt(sumSqResid / dof))
	se = math.Max(se, mean*0.02)

	return model.Estimate{Mean: mean, SD: finite(se)}
}
