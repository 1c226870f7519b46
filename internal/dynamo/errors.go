package dynamo

import "errors"

// Domain errors for simulation and estimation.
var (
	// ErrInvalidMeasurement indicates a non-finite or out-of-range sample.
	ErrInvalidMeasurement = errors.New("dynamo: invalid measurement")

	// ErrStateInvariant indicates a state update with no physical resolution
	// (e.g. drawing more charge than the available reservoir holds).
	ErrStateInvariant = errors.New("dynamo: state invariant violated")

	// ErrNumericalInstability indicates the integrator produced NaN or Inf.
	ErrNumericalInstability = errors.New("dynamo: numerical instability (NaN/Inf state)")

	// ErrEstimatorDivergence indicates sustained clamping of an estimated
	// quantity at its bounds.
	ErrEstimatorDivergence = errors.New("dynamo: estimator divergence (sustained clamping)")

	// ErrParameterBounds indicates a parameter value outside its valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")
)

// StepError wraps an error with the step at which it occurred.
type StepError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *StepError) Error() string {
	return e.Wrapped.Error()
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
