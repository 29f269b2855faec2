package risk

import "math"

// Composite score weights
const (
	sortinoWeight = 0.4
	sharpeWeight  = 0.3
	calmarWeight  = 0.3

	tradingDaysPerYear = 252
)

// Returns computes simple percentage changes between consecutive values.
// Steps starting from a non-positive value are skipped.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] <= 0 {
			continue
		}
		returns = append(returns, (values[i]-values[i-1])/values[i-1])
	}
	return returns
}

// Drawdowns walks the series tracking the running peak and returns the
// largest and the latest drawdown as fractions of the peak.
func Drawdowns(values []float64) (maxDD, currentDD float64) {
	if len(values) == 0 {
		return 0, 0
	}

	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			currentDD = (peak - v) / peak
		}
		if currentDD > maxDD {
			maxDD = currentDD
		}
	}
	return maxDD, currentDD
}

// ComputeMetrics derives the risk-adjusted ratios from a value series.
// Sharpe and Sortino use raw per-step returns; only Calmar's numerator is annualised.
func ComputeMetrics(values []float64) Metrics {
	var m Metrics
	m.Samples = len(values)
	if len(values) == 0 {
		return m
	}

	returns := Returns(values)
	m.MeanReturn, m.ReturnStdDev = meanStd(returns)

	if m.ReturnStdDev > 0 {
		m.SharpeRatio = m.MeanReturn / m.ReturnStdDev
	}

	var negative []float64
	for _, r := range returns {
		if r < 0 {
			negative = append(negative, r)
		}
	}
	if len(negative) > 0 {
		if _, downside := meanStd(negative); downside > 0 {
			m.SortinoRatio = m.MeanReturn / downside
		}
	}

	m.MaxDrawdown, m.CurrentDrawdown = Drawdowns(values)
	if m.MaxDrawdown > 0 {
		m.CalmarRatio = m.MeanReturn * tradingDaysPerYear / m.MaxDrawdown
	}

	m.CompositeScore = sortinoWeight*m.SortinoRatio + sharpeWeight*m.SharpeRatio + calmarWeight*m.CalmarRatio

	m.InitialValue = values[0]
	m.CurrentValue = values[len(values)-1]
	m.PeakValue = values[0]
	for _, v := range values {
		m.PeakValue = math.Max(m.PeakValue, v)
	}
	if m.InitialValue > 0 {
		m.TotalReturn = (m.CurrentValue - m.InitialValue) / m.InitialValue
	}

	return m
}

// meanStd returns the mean and population standard deviation
func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	for _, x := range xs {
		std += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(std / float64(len(xs)))
}
