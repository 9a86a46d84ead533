// Package dataset reads and writes row-major float32 vector sets in the
// .fvecs binary layout and as CSV.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrRagged is returned when rows of one file differ in dimension.
var ErrRagged = errors.New("dataset: rows differ in dimension")

// Set is a row-major vector set.
type Set struct {
	Dim  int
	Data []float32
}

// Rows returns the number of vectors.
func (s *Set) Rows() int {
	if s.Dim == 0 {
		return 0
	}
	return len(s.Data) / s.Dim
}

// Row returns vector i. The slice aliases Data.
func (s *Set) Row(i int) []float32 {
	return s.Data[i*s.Dim : (i+1)*s.Dim]
}

// Slice returns rows [lo, hi) as a new Set sharing Data.
func (s *Set) Slice(lo, hi int) *Set {
	return &Set{Dim: s.Dim, Data: s.Data[lo*s.Dim : hi*s.Dim]}
}

// ReadFile reads a set, choosing the format by extension: ".csv" is CSV,
// anything else .fvecs. limit > 0 stops after that many rows.
func ReadFile(path string, limit int) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var set *Set
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		set, err = ReadCSV(f, limit)
	} else {
		set, err = ReadFvecs(f, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	return set, nil
}

// WriteFile writes a set as .fvecs, or CSV when path ends in ".csv".
func WriteFile(path string, set *Set) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return WriteCSV(f, set)
	}
	return WriteFvecs(f, set)
}
