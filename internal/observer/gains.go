package observer

import "fmt"

// Gains configures the two correction loops. They are fixed empirical gains
// tuned against the NASA archive, not covariance-derived Kalman gains; the
// fast gain is applied to the sensitivity-normalized innovation, so its
// useful range is insensitive to where on the voltage curve the cell sits.
type Gains struct {
	// FastGain scales the per-sample SOC correction
	// (soc += FastGain * innovation / dV/dSOC).
	FastGain float64

	// LearnRate is the slow-loop gradient descent step on RBase.
	LearnRate float64

	// ClipR bounds the magnitude of one slow-loop resistance update, ohm.
	ClipR float64

	// MinCurrentFast gates the fast loop: below this |I| the terminal
	// voltage carries little SOC information.
	MinCurrentFast float64

	// MinCurrentSlow gates resistance learning: the gradient degenerates
	// as I approaches zero, so updates are skipped rather than damped
	// into noise. Discharge only.
	MinCurrentSlow float64

	// MinSensitivity skips the fast correction on voltage plateaus where
	// dV/dSOC makes the inversion ill-conditioned, V per unit SOC.
	MinSensitivity float64

	// UpdateEvery is the slow-loop cadence in samples; the gradient is
	// averaged over the window before it is applied.
	UpdateEvery int

	// DivergenceWindow is the number of consecutive clamped corrections
	// after which the run is flagged as diverging.
	DivergenceWindow int
}

func DefaultGains() Gains {
	return Gains{
		FastGain:         0.02,
		LearnRate:        5e-5,
		ClipR:            0.005,
		MinCurrentFast:   0.1,
		MinCurrentSlow:   0.5,
		MinSensitivity:   0.05,
		UpdateEvery:      1,
		DivergenceWindow: 50,
	}
}

func (g Gains) Validate() error {
	if g.FastGain < 0 || g.FastGain > 1 {
		return fmt.Errorf("fast gain must be in [0,1], got %f", g.FastGain)
	}
	if g.LearnRate < 0 {
		return fmt.Errorf("learning rate must be non-negative, got %f", g.LearnRate)
	}
	if g.ClipR <= 0 {
		return fmt.Errorf("resistance clip must be positive, got %f", g.ClipR)
	}
	if g.UpdateEvery < 1 {
		return fmt.Errorf("update interval must be at least 1, got %d", g.UpdateEvery)
	}
	if g.DivergenceWindow < 1 {
		return fmt.Errorf("divergence window must be at least 1, got %d", g.DivergenceWindow)
	}
	return nil
}
