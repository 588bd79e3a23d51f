// Package drift defines the contract shared by everything that moves
// Lagrangian elements (LEs) through a trajectory simulation.
//
// The package provides:
//
//   - [Mover]: one contributor to the motion of LEs for a single model step
//   - [Base]: default (identity / no-op) behaviour concrete movers embed
//   - [ClassID]: kind tags answering "is this a K" without reflection
//   - [Uncertainty]: the start/duration window that gates perturbation
//
// # Step protocol
//
// The owning [Map] drives every step in three phases:
//
//	for each mover: PrepareForStep(start, end, modelTime, uncertain)
//	for each LE, each mover: Move(dt, set, le, rec, leType)
//	for each mover: StepDone()
//
// Move must be a pure function of its arguments and the mover's
// configuration, so the inner loop may run in parallel.
//
// # Thread Safety
//
// Move and AddUncertainty may be called concurrently for different LEs.
// PrepareForStep, UpdateUncertainty and StepDone are called by a single
// goroutine between those phases.
package drift
