// Package testutil provides testing utilities for gcptr.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe random source for driving randomized
// handle workloads reproducibly.
//
//	rng := testutil.NewRNG(seed)
//	op := rng.Choose([]int{4, 2, 1})  // weighted operation pick
//	addr := pool[rng.Zipf(len(pool), 1.5)]  // skewed target pick
package testutil
