// Package lemap holds the movers acting on a set of LEs and drives them
// through one model step at a time.
//
// A step always runs in the same order: PrepareForStep on every mover, then
// UpdateUncertainty on every mover when the LE set is an uncertainty set,
// then Move for every (LE, mover) pair, then StepDone on every mover exactly
// once. Each mover returns the position its own contribution would produce;
// the map sums the displacements, so the result does not depend on mover
// order.
package lemap
