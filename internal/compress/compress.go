// Package compress wraps index streams in optional LZ4 or Zstandard framing.
package compress

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used for a stream.
type Type uint8

const (
	// None stores the stream as is.
	None Type = 0
	// LZ4 uses LZ4 frames (fast, moderate ratio).
	LZ4 Type = 1
	// Zstd uses Zstandard frames (better ratio).
	Zstd Type = 2
)

// ErrUnknownType is returned for compression types this package cannot handle.
type ErrUnknownType struct {
	Type Type
}

func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("compress: unknown type %d", uint8(e.Type))
}

// ParseType maps "none", "lz4" and "zstd" to a Type.
func ParseType(name string) (Type, error) {
	switch name {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("compress: unknown type %q", name)
	}
}

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
	lz4WriterPool   sync.Pool
	lz4ReaderPool   sync.Pool
)

func getZstdEncoder(w io.Writer) (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		enc := v.(*zstd.Encoder)
		enc.Reset(w)
		return enc, nil
	}
	return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder(r io.Reader) (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		dec := v.(*zstd.Decoder)
		if err := dec.Reset(r); err != nil {
			return nil, err
		}
		return dec, nil
	}
	return zstd.NewReader(r)
}

func getLZ4Writer(w io.Writer) *lz4.Writer {
	if v := lz4WriterPool.Get(); v != nil {
		lw := v.(*lz4.Writer)
		lw.Reset(w)
		return lw
	}
	return lz4.NewWriter(w)
}

func getLZ4Reader(r io.Reader) *lz4.Reader {
	if v := lz4ReaderPool.Get(); v != nil {
		lr := v.(*lz4.Reader)
		lr.Reset(r)
		return lr
	}
	return lz4.NewReader(r)
}

// NewWriter returns a writer that compresses into w. Closing it flushes the
// frame but leaves w open.
func NewWriter(w io.Writer, t Type) (io.WriteCloser, error) {
	switch t {
	case None:
		return nopWriteCloser{w}, nil
	case LZ4:
		return &lz4WriteCloser{Writer: getLZ4Writer(w)}, nil
	case Zstd:
		enc, err := getZstdEncoder(w)
		if err != nil {
			return nil, err
		}
		return &zstdWriteCloser{Encoder: enc}, nil
	default:
		return nil, &ErrUnknownType{Type: t}
	}
}

// NewReader returns a reader that decompresses r. Closing it releases
// decoder state but leaves r open.
func NewReader(r io.Reader, t Type) (io.ReadCloser, error) {
	switch t {
	case None:
		return io.NopCloser(r), nil
	case LZ4:
		return &lz4ReadCloser{Reader: getLZ4Reader(r)}, nil
	case Zstd:
		dec, err := getZstdDecoder(r)
		if err != nil {
			return nil, err
		}
		return &zstdReadCloser{Decoder: dec}, nil
	default:
		return nil, &ErrUnknownType{Type: t}
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type lz4WriteCloser struct {
	*lz4.Writer
	closed bool
}

func (w *lz4WriteCloser) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.Writer.Close()
	lz4WriterPool.Put(w.Writer)
	return err
}

type zstdWriteCloser struct {
	*zstd.Encoder
	closed bool
}

func (w *zstdWriteCloser) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.Encoder.Close()
	zstdEncoderPool.Put(w.Encoder)
	return err
}

type lz4ReadCloser struct {
	*lz4.Reader
	closed bool
}

func (r *lz4ReadCloser) Close() error {
	if !r.closed {
		r.closed = true
		lz4ReaderPool.Put(r.Reader)
	}
	return nil
}

type zstdReadCloser struct {
	*zstd.Decoder
	closed bool
}

func (r *zstdReadCloser) Close() error {
	if !r.closed {
		r.closed = true
		// Drop the reference to the source before pooling.
		_ = r.Decoder.Reset(nil)
		zstdDecoderPool.Put(r.Decoder)
	}
	return nil
}
