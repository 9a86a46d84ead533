package graph

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/sameraamar/HNSW/distance"
)

const (
	// FormatVersion is the current graph stream version.
	FormatVersion uint32 = 1

	maxLinksPerLevel = 1 << 16
	maxLevelBound    = 64

	// maxLinkM keeps 2*M links within maxLinksPerLevel.
	maxLinkM = maxLinksPerLevel / 2
	// decodeChunk caps the node slots allocated ahead of decoded nodes.
	decodeChunk = 1 << 14
)

var headerSize = binary.Size(header{})

var magic = [4]byte{'H', 'N', 'S', 'W'}

var (
	// ErrCorrupt is returned when a graph stream cannot be decoded.
	ErrCorrupt = errors.New("graph: corrupt stream")

	// ErrIncompatible is returned when a stream was written for a different space or dimension.
	ErrIncompatible = errors.New("graph: incompatible stream")
)

type header struct {
	Magic          [4]byte
	Version        uint32
	Space          uint32
	Dimension      uint32
	M              uint32
	EfConstruction uint32
	Ef             uint32
	Capacity       uint32
	Count          uint32
	MaxLevel       int32
	EntryPoint     int64
	Seed           int64
}

// Params describes a saved graph.
type Params struct {
	Space          distance.Space
	Dimension      int
	M              int
	EfConstruction int
	Ef             int
	Capacity       int
	Count          int
	MaxLevel       int
}

func readHeader(r io.Reader) (header, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if h.Magic != magic {
		return h, fmt.Errorf("%w: bad magic %q", ErrCorrupt, h.Magic[:])
	}
	if h.Version != FormatVersion {
		return h, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, h.Version)
	}
	if err := h.validate(); err != nil {
		return h, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return h, nil
}

// validate checks the fields that size allocations before any node is read.
func (h *header) validate() error {
	switch {
	case h.Dimension == 0:
		return errors.New("zero dimension")
	case h.M < minimumM || h.M > maxLinkM:
		return fmt.Errorf("M %d out of range", h.M)
	case h.EfConstruction < h.M || h.EfConstruction > maxLinksPerLevel:
		return fmt.Errorf("ef construction %d out of range", h.EfConstruction)
	case h.Ef == 0:
		return errors.New("zero ef")
	case h.Count > h.Capacity:
		return fmt.Errorf("count %d exceeds capacity %d", h.Count, h.Capacity)
	case h.MaxLevel >= maxLevelBound:
		return fmt.Errorf("max level %d out of range", h.MaxLevel)
	case h.Count == 0 && (h.EntryPoint != -1 || h.MaxLevel != -1):
		return errors.New("empty graph with an entry point")
	case h.Count > 0 && (h.EntryPoint < 0 || h.EntryPoint >= int64(h.Count) || h.MaxLevel < 0):
		return errors.New("inconsistent entry point")
	}
	return nil
}

// ReadParams decodes the header of a graph stream written by Save.
func ReadParams(r io.Reader) (Params, error) {
	h, err := readHeader(r)
	if err != nil {
		return Params{}, err
	}
	return Params{
		Space:          distance.Space(h.Space),
		Dimension:      int(h.Dimension),
		M:              int(h.M),
		EfConstruction: int(h.EfConstruction),
		Ef:             int(h.Ef),
		Capacity:       int(h.Capacity),
		Count:          int(h.Count),
		MaxLevel:       int(h.MaxLevel),
	}, nil
}

// PeekParams decodes the header at the front of br without consuming it.
func PeekParams(br *bufio.Reader) (Params, error) {
	buf, err := br.Peek(headerSize)
	if err != nil {
		return Params{}, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	return ReadParams(bytes.NewReader(buf))
}

// Save writes the graph to w in little-endian binary form.
//
// Save must not run concurrently with AddPoint.
func (g *Graph) Save(w io.Writer) error {
	if g.closed.Load() {
		return ErrClosed
	}

	bw := bufio.NewWriter(w)
	ep, maxLevel := g.entry()
	count := g.ElementCount()

	h := header{
		Magic:          magic,
		Version:        FormatVersion,
		Space:          uint32(g.space),
		Dimension:      uint32(g.dim),
		M:              uint32(g.m),
		EfConstruction: uint32(g.efConstruction),
		Ef:             uint32(g.Ef()),
		Capacity:       uint32(g.capacity),
		Count:          uint32(count),
		MaxLevel:       int32(maxLevel),
		EntryPoint:     ep,
		Seed:           g.seed,
	}
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		return err
	}

	for id := 0; id < count; id++ {
		if err := g.writeNode(bw, g.nodes[id]); err != nil {
			return fmt.Errorf("graph: write node %d: %w", id, err)
		}
	}

	return bw.Flush()
}

func (g *Graph) writeNode(w io.Writer, n *node) error {
	if err := binary.Write(w, binary.LittleEndian, n.label); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(n.level)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.vector); err != nil {
		return err
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, links := range n.links {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(links))); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, links); err != nil {
			return err
		}
	}
	return nil
}

// Load reads a graph written by Save. The stream must match space and
// dimension. The loaded graph holds max(maxElements, stored count) elements.
func Load(r io.Reader, space distance.Space, dimension, maxElements int) (*Graph, error) {
	br := bufio.NewReader(r)

	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	if distance.Space(h.Space) != space {
		return nil, fmt.Errorf("%w: stored space %v, want %v", ErrIncompatible, distance.Space(h.Space), space)
	}
	if int(h.Dimension) != dimension {
		return nil, fmt.Errorf("%w: stored dimension %d, want %d", ErrIncompatible, h.Dimension, dimension)
	}

	// Nodes are decoded before anything is sized from the header, so a
	// truncated stream fails after reading what it holds.
	count := int(h.Count)
	nodes := make([]*node, 0, min(count, decodeChunk))
	labels := make(map[uint64]uint32, min(count, decodeChunk))
	for id := 0; id < count; id++ {
		n, err := readNode(br, dimension, count, 2*int(h.M))
		if err != nil {
			return nil, fmt.Errorf("%w: node %d: %v", ErrCorrupt, id, err)
		}
		if _, dup := labels[n.label]; dup {
			return nil, fmt.Errorf("%w: duplicate label %d", ErrCorrupt, n.label)
		}
		nodes = append(nodes, n)
		labels[n.label] = uint32(id)
	}
	if count > 0 && nodes[h.EntryPoint].level != int(h.MaxLevel) {
		return nil, fmt.Errorf("%w: entry point level %d, max level %d", ErrCorrupt, nodes[h.EntryPoint].level, h.MaxLevel)
	}

	g, err := New(Config{
		Space:          space,
		Dimension:      dimension,
		MaxElements:    max(maxElements, count),
		M:              int(h.M),
		EfConstruction: int(h.EfConstruction),
		Seed:           h.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	g.SetEf(int(h.Ef))
	// Continue the level sequence away from the one that built the stored nodes.
	g.rng = rand.New(rand.NewSource(h.Seed + int64(h.Count)))

	copy(g.nodes, nodes)
	g.labels = labels
	g.count.Store(int64(count))
	g.entryPoint = h.EntryPoint
	g.maxLevel = int(h.MaxLevel)

	return g, nil
}

func readNode(r io.Reader, dimension, count, maxLinks int) (*node, error) {
	var (
		label uint64
		level uint32
	)
	if err := binary.Read(r, binary.LittleEndian, &label); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &level); err != nil {
		return nil, err
	}
	if level >= maxLevelBound {
		return nil, fmt.Errorf("level %d out of range", level)
	}

	n := &node{
		label:  label,
		level:  int(level),
		vector: make([]float32, dimension),
		links:  make([][]uint32, level+1),
	}
	if err := binary.Read(r, binary.LittleEndian, n.vector); err != nil {
		return nil, err
	}

	for l := range n.links {
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		if int(size) > maxLinks {
			return nil, fmt.Errorf("link count %d out of range", size)
		}
		links := make([]uint32, size)
		if err := binary.Read(r, binary.LittleEndian, links); err != nil {
			return nil, err
		}
		for _, id := range links {
			if int(id) >= count {
				return nil, fmt.Errorf("link %d out of range", id)
			}
		}
		n.links[l] = links
	}
	return n, nil
}
