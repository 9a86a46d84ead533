// Package distance provides the similarity spaces understood by the index
// and the vector kernels behind them.
//
// # Spaces
//
//   - SpaceL2: squared Euclidean distance
//   - SpaceIP: inner product, reported as 1 - dot(a, b)
//   - SpaceCosine: inner product over L2-normalized vectors
//
// Kernels delegate to github.com/viterin/vek/vek32, which selects SIMD
// implementations at runtime.
//
// # Usage
//
//	space, err := distance.ParseSpace("cosine")
//	fn := space.Func()
//	distance.Normalize(dst, src)
package distance
