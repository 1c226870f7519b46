// Package battery provides the lithium-ion cell model used for simulation
// and estimation.
//
// The model couples three sub-models over one state vector:
//
//   - kinetic two-reservoir charge model (kibam.go): rate-dependent capacity
//     and rest recovery via diffusion between an available and a bound
//     charge reservoir
//   - Shepherd terminal-voltage curve (shepherd.go): empirical OCV with a
//     polarization term and an ohmic drop through the internal resistance
//   - thermal and SEI aging model (thermal.go): entropic plus resistive
//     heating with Newton cooling, and diffusion-limited SEI film growth
//     producing capacity fade and resistance rise
//
// [Cell] implements [dynamo.System]; the state vector layout is documented
// in state.go. A Cell plus its [Params] instance must be owned by a single
// run at a time.
package battery
