// Package hnsw provides a batch-oriented, multi-threaded facade over an HNSW
// approximate nearest neighbor index.
//
// # Quick Start
//
//	idx, err := hnsw.New("cosine", 128)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer idx.Close()
//
//	if err := idx.Init(100_000, 16, 200, 100); err != nil {
//	    log.Fatal(err)
//	}
//
//	// vectors holds rows*128 float32 values, row-major.
//	if err := idx.AddItems(vectors, ids, rows, 0); err != nil {
//	    log.Fatal(err)
//	}
//
//	results, err := idx.Search(queries, len(queries)/128, 10, 0)
//
// # Batches
//
// AddItems and Search fan rows out over a fresh set of goroutines per call
// and return only after every worker has exited. A thread hint <= 0 uses the
// index default (the number of CPUs unless WithNumThreads says otherwise),
// and batches of at most threads*4 rows run on the calling goroutine.
//
// The first point ever inserted into a freshly initialized index is added
// alone before any concurrent insert starts, so the graph has an entry point.
//
// Search is strict: every query row must yield exactly k neighbors or the
// whole batch fails with a *ResultCardinalityError. Raise ef with SetEf when
// k approaches the size of the index.
//
// # Spaces
//
//   - "l2": squared Euclidean distance
//   - "ip": 1 - dot product
//   - "cosine": 1 - dot product over vectors normalized to unit length on the
//     way in (both inserts and queries)
//
// # Persistence
//
// Save and Load go through a blobstore.Store (the local file system by
// default) and can compress the graph stream with LZ4 or Zstandard.
package hnsw
