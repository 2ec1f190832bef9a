// Package conv provides checked integer conversions for allocation sizes.
//
// Allocation requests arrive as element counts and element sizes. Their
// product must be validated before it reaches an allocator, otherwise a large
// count silently wraps into a small allocation.
package conv
