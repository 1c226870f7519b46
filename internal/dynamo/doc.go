// Package dynamo provides core simulation primitives for dynamical systems.
//
// The package defines the fundamental interfaces and types for numerical
// simulation of ordinary differential equations (ODEs) and for feedback
// estimation against logged measurements:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical integrator interface
//   - [Measurement]: one logged (current, voltage) sample
//   - [Record]: per-sample output row of a simulation or estimation run
//
// # Thread Safety
//
// State and parameter instances are exclusively owned by a single
// engine/estimator pair for the duration of a run. For parallel work, run
// independent instances side by side (see the sweep package).
package dynamo
