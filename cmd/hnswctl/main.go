// Command hnswctl builds, queries and benchmarks HNSW indexes.
//
// Usage:
//
//	hnswctl [--config file] <command> [args]
//
// Commands:
//
//	build  - insert a .fvecs or CSV dataset into a new index and save it
//	query  - load an index and print the nearest neighbors of query vectors
//	info   - load an index and describe it
//	bench  - build or reuse an index over random data and measure recall
//
// Configuration:
//
//	Settings are read from a YAML file (--config) and overridden by flags.
//	Indexes are stored on the local file system, S3 or MinIO.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
