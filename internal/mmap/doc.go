// Package mmap maps saved index files into memory for reading.
//
//	m, err := mmap.Open("index.hnsw")
//	if err != nil { ... }
//	defer m.Close()
//
//	r := m.Reader() // io.Reader over the mapped bytes
//
// On Unix the file is mapped with mmap(2) and the kernel is told the access
// is sequential. Other platforms read the file into memory instead.
//
// A Mapping may be read from multiple goroutines. Callers must not touch
// Bytes() after Close returns.
package mmap
