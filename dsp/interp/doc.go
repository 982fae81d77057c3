// Package interp provides the interpolation primitives used for fractional
// reads from wavetables and delay lines.
//
// Available methods, from cheapest to highest quality:
//
//   - [Linear2]:  2-point linear interpolation
//   - [Hermite4]: 4-point cubic Hermite
//
// [Periodic] applies either kernel to a single-cycle table with a duplicated
// wrap-around sample, selected by [Mode].
package interp
