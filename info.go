package hnsw

import (
	"fmt"
	"io"
)

// Info describes an index.
type Info struct {
	ID           string
	Space        string
	Dimension    int
	ElementCount int
	Ef           int
	NumThreads   int
	Initialized  bool

	// Graph parameters; zero when the engine does not report them.
	MaxElements    int
	M              int
	EfConstruction int
	MaxLevel       int
}

// Info returns a snapshot of the index configuration and size.
func (ix *Index) Info() Info {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.infoLocked()
}

func (ix *Index) infoLocked() Info {
	info := Info{
		ID:           ix.id,
		Space:        ix.space.String(),
		Dimension:    ix.dim,
		ElementCount: ix.curL,
		Ef:           ix.ef,
		NumThreads:   ix.numThreads,
		Initialized:  ix.engine != nil,
	}
	if stats, ok := ix.engine.(engineStats); ok {
		info.MaxElements = stats.Capacity()
		info.M = stats.M()
		info.EfConstruction = stats.EfConstruction()
		info.MaxLevel = stats.MaxLevel()
	}
	return info
}

func (i Info) logAttrs() []any {
	return []any{
		"element_count", i.ElementCount,
		"max_elements", i.MaxElements,
		"m", i.M,
		"ef_construction", i.EfConstruction,
		"max_level", i.MaxLevel,
	}
}

// PrintInfo writes a human-readable description of the index to w.
func (ix *Index) PrintInfo(w io.Writer, label string) error {
	info := ix.Info()

	_, err := fmt.Fprintf(w, "%s\n  id: %s\n  space: %s\n  dimension: %d\n  elements: %d\n  ef: %d\n  threads: %d\n",
		label, info.ID, info.Space, info.Dimension, info.ElementCount, info.Ef, info.NumThreads)
	if err != nil {
		return err
	}
	if !info.Initialized {
		_, err = fmt.Fprintln(w, "  engine: not initialized")
		return err
	}
	if info.MaxElements > 0 || info.M > 0 {
		_, err = fmt.Fprintf(w, "  max elements: %d\n  M: %d\n  ef construction: %d\n  max level: %d\n",
			info.MaxElements, info.M, info.EfConstruction, info.MaxLevel)
	}
	return err
}
