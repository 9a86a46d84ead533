// Package testutil provides testing utilities for the HNSW index.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.UniformVectors(1000, 128)  // uniform [0, 1)
//	flat := testutil.Flatten(vecs)         // row-major, as AddItems expects
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(exactIDs, approxIDs)
package testutil
