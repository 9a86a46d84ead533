// Package graph implements the Hierarchical Navigable Small World (HNSW)
// engine behind the index facade.
//
// The graph has a fixed capacity chosen at construction. Inserts from
// multiple goroutines are safe once an entry point exists: every node guards
// its own link lists with a lock that is never held while another node's lock
// is acquired, and a promotion lock serializes inserts that raise the top
// level of the graph.
//
// # Parameters
//
//   - M: links per node on upper layers (2*M on layer 0)
//   - EfConstruction: candidate list size while inserting
//   - Ef: candidate list size while searching (raised to k when smaller)
//
// # Reference
//
// Malkov & Yashunin, "Efficient and robust approximate nearest neighbor search
// using Hierarchical Navigable Small World graphs", IEEE TPAMI 2018.
package graph
