package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/cellsim/internal/dynamo"
)

// VoltageRMSE is the root-mean-square residual between predicted and
// measured voltage over a run. Records without a finite residual (skipped
// samples, pure simulation) are ignored.
func VoltageRMSE(records []dynamo.Record) float64 {
	var sq []float64
	for _, r := range records {
		if !math.IsNaN(r.Residual) {
			sq = append(sq, r.Residual*r.Residual)
		}
	}
	if len(sq) == 0 {
		return math.NaN()
	}
	return math.Sqrt(stat.Mean(sq, nil))
}

// VoltageMAE is the mean absolute voltage residual.
func VoltageMAE(records []dynamo.Record) float64 {
	var abs []float64
	for _, r := range records {
		if !math.IsNaN(r.Residual) {
			abs = append(abs, math.Abs(r.Residual))
		}
	}
	if len(abs) == 0 {
		return math.NaN()
	}
	return stat.Mean(abs, nil)
}

// MovingRMSE computes the RMSE over a sliding window, one value per window
// hop. Useful to verify that the estimator's residual shrinks over a run
// rather than only on average.
func MovingRMSE(records []dynamo.Record, window int) []float64 {
	if window < 1 || len(records) < window {
		return nil
	}
	out := make([]float64, 0, len(records)/window)
	for start := 0; start+window <= len(records); start += window {
		out = append(out, VoltageRMSE(records[start:start+window]))
	}
	return out
}

// SOCRMSE compares estimated SOC against a ground-truth trajectory of equal
// length, as produced by synthetic validation runs.
func SOCRMSE(records []dynamo.Record, truth []float64) float64 {
	n := len(records)
	if len(truth) < n {
		n = len(truth)
	}
	if n == 0 {
		return math.NaN()
	}
	sq := make([]float64, n)
	for i := 0; i < n; i++ {
		d := records[i].SOC - truth[i]
		sq[i] = d * d
	}
	return math.Sqrt(stat.Mean(sq, nil))
}
