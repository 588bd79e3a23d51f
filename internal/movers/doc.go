// Package movers provides concrete [drift.Mover] implementations.
//
// Each mover embeds [drift.Base] (directly or through another mover) and
// overrides only what it contributes:
//
//   - [Constant]: uniform current, along/cross uncertainty ([Current])
//   - [Wind]: point wind record times LE windage, speed/angle uncertainty
//   - [Random]: horizontal diffusion
//   - [RandomVertical]: horizontal diffusion plus vertical mixing (3D)
//
// # Type identity
//
// Kinds form a chain; each IAm checks its own tag and delegates:
//
//	RandomVertical -> Random -> Mover
//	Constant -> Current -> Mover
//
// # Determinism
//
// Random draws are keyed by (seed, epoch or model time, set, LE) rather than
// taken from a shared stream, so Move gives the same answer regardless of
// the order LEs are visited in.
package movers
