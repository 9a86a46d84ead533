package dataset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ReadFvecs decodes .fvecs records: a little-endian int32 dimension followed
// by that many float32 values, repeated.
func ReadFvecs(r io.Reader, limit int) (*Set, error) {
	br := bufio.NewReader(r)
	set := &Set{}

	var head [4]byte
	for limit <= 0 || set.Rows() < limit {
		if _, err := io.ReadFull(br, head[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("row %d: %w", set.Rows(), err)
		}

		dim := int(int32(binary.LittleEndian.Uint32(head[:])))
		if dim <= 0 {
			return nil, fmt.Errorf("row %d: invalid dimension %d", set.Rows(), dim)
		}
		if set.Dim == 0 {
			set.Dim = dim
		} else if dim != set.Dim {
			return nil, fmt.Errorf("%w: row %d has %d, want %d", ErrRagged, set.Rows(), dim, set.Dim)
		}

		buf := make([]byte, 4*dim)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("row %d: %w", set.Rows(), io.ErrUnexpectedEOF)
		}
		for i := 0; i < dim; i++ {
			set.Data = append(set.Data, math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:])))
		}
	}
	return set, nil
}

// WriteFvecs encodes the set as .fvecs records.
func WriteFvecs(w io.Writer, set *Set) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 4+4*set.Dim)

	binary.LittleEndian.PutUint32(buf, uint32(set.Dim))
	for row := 0; row < set.Rows(); row++ {
		for i, v := range set.Row(row) {
			binary.LittleEndian.PutUint32(buf[4+4*i:], math.Float32bits(v))
		}
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}
