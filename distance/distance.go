package distance

import (
	"fmt"
	"math"

	"github.com/viterin/vek/vek32"
)

// normEpsilon keeps zero vectors from dividing by zero during normalization.
const normEpsilon = 1e-30

// Space identifies a similarity space.
type Space int

const (
	SpaceL2 Space = iota
	SpaceIP
	SpaceCosine
)

// ErrUnknownSpace is returned by ParseSpace for unsupported names.
type ErrUnknownSpace struct {
	Name string
}

func (e *ErrUnknownSpace) Error() string {
	return fmt.Sprintf("unknown space %q: must be one of l2, ip, or cosine", e.Name)
}

// ParseSpace maps the space names "l2", "ip" and "cosine" to a Space.
func ParseSpace(name string) (Space, error) {
	switch name {
	case "l2":
		return SpaceL2, nil
	case "ip":
		return SpaceIP, nil
	case "cosine":
		return SpaceCosine, nil
	default:
		return 0, &ErrUnknownSpace{Name: name}
	}
}

func (s Space) String() string {
	switch s {
	case SpaceL2:
		return "l2"
	case SpaceIP:
		return "ip"
	case SpaceCosine:
		return "cosine"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Valid reports whether s is a known space.
func (s Space) Valid() bool {
	return s >= SpaceL2 && s <= SpaceCosine
}

// Normalized reports whether vectors must be unit length before they reach
// the engine.
func (s Space) Normalized() bool {
	return s == SpaceCosine
}

// Func is a distance function; smaller is closer.
type Func func(a, b []float32) float32

// Func returns the distance function for the space.
func (s Space) Func() Func {
	if s == SpaceL2 {
		return SquaredL2
	}
	return InnerProduct
}

// Dot calculates the dot product of two equally sized vectors.
func Dot(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	return vek32.Dot(a, b)
}

// SquaredL2 calculates the squared Euclidean distance of two equally sized vectors.
func SquaredL2(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	d := vek32.Distance(a, b)
	return d * d
}

// InnerProduct returns 1 - dot(a, b).
func InnerProduct(a, b []float32) float32 {
	return 1 - Dot(a, b)
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float32 {
	return float32(math.Sqrt(float64(Dot(v, v))))
}

// Normalize writes src scaled to unit length into dst and returns dst.
// dst must not alias src and must have len(src) elements. A zero vector
// yields zeros.
func Normalize(dst, src []float32) []float32 {
	if len(src) == 0 {
		return dst
	}
	inv := 1 / (Norm(src) + normEpsilon)
	return vek32.MulNumber_Into(dst[:len(src)], src, inv)
}
