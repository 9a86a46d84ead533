package hnsw

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sameraamar/HNSW/blobstore"
	"github.com/sameraamar/HNSW/graph"
	"github.com/sameraamar/HNSW/internal/compress"
	"github.com/sameraamar/HNSW/resource"
)

// fileMagic starts every saved index, followed by one compression byte.
var fileMagic = [4]byte{'H', 'N', 'S', 'X'}

// Save writes the engine to the blob store under name.
func (ix *Index) Save(ctx context.Context, name string) (err error) {
	start := time.Now()

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := ix.ready(); err != nil {
		return err
	}
	defer func() {
		ix.metrics.RecordSave(time.Since(start), err)
		ix.logger.LogSave(ctx, name, err)
	}()

	blob, err := ix.store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("hnsw: save %s: %w", name, err)
	}

	if err := ix.writeTo(ix.resources.Writer(ctx, blob)); err != nil {
		_ = blob.Abort()
		return fmt.Errorf("hnsw: save %s: %w", name, err)
	}
	if err := blob.Close(); err != nil {
		return fmt.Errorf("hnsw: save %s: %w", name, err)
	}
	return nil
}

func (ix *Index) writeTo(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(fileMagic[:]); err != nil {
		return err
	}
	if err := bw.WriteByte(byte(ix.compression)); err != nil {
		return err
	}

	cw, err := compress.NewWriter(bw, ix.compression)
	if err != nil {
		return err
	}
	if err := ix.engine.Save(cw); err != nil {
		return err
	}
	if err := cw.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

// Load replaces the engine with the one saved under name. An existing
// engine is discarded with a warning. The loaded engine holds at least
// maxElements elements, or its stored count if that is larger.
func (ix *Index) Load(ctx context.Context, name string, maxElements int) (err error) {
	start := time.Now()

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.closed {
		return ErrClosed
	}
	defer func() {
		ix.metrics.RecordLoad(time.Since(start), err)
		ix.logger.LogLoad(ctx, name, ix.curL, err)
	}()

	blob, err := ix.store.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("hnsw: load %s: %w", name, err)
	}
	defer blob.Close()

	engine, reserve, err := ix.readFrom(ix.resources.Reader(ctx, blob), maxElements)
	if err != nil {
		return fmt.Errorf("hnsw: load %s: %w", name, err)
	}

	ix.replaceEngine(ctx, engine, reserve)

	ix.logger.DebugContext(ctx, "loaded graph parameters", ix.infoLocked().logAttrs()...)
	return nil
}

// readFrom reserves memory for the engine described by the stream header,
// then loads it. The reservation is released if loading fails.
func (ix *Index) readFrom(r io.Reader, maxElements int) (Engine, int64, error) {
	cr, err := openStream(r)
	if err != nil {
		return nil, 0, err
	}
	defer cr.Close()

	br := bufio.NewReader(cr)
	params, err := graph.PeekParams(br)
	if err != nil {
		return nil, 0, err
	}

	reserve := resource.GraphBytes(max(maxElements, params.Count), ix.dim, params.M)
	if err := ix.resources.AcquireMemory(reserve); err != nil {
		return nil, 0, err
	}

	engine, err := ix.factory.Load(br, ix.space, ix.dim, maxElements)
	if err != nil {
		ix.resources.ReleaseMemory(reserve)
		return nil, 0, err
	}
	return engine, reserve, nil
}

// openStream checks the file header and returns the decompressed engine
// stream.
func openStream(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)

	var header [5]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotIndexFile, err)
	}
	if [4]byte(header[:4]) != fileMagic {
		return nil, ErrNotIndexFile
	}

	return compress.NewReader(br, compress.Type(header[4]))
}

// Inspect reads the graph parameters of the index saved under name without
// loading its nodes.
func Inspect(ctx context.Context, store blobstore.Store, name string) (graph.Params, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return graph.Params{}, fmt.Errorf("hnsw: inspect %s: %w", name, err)
	}
	defer blob.Close()

	cr, err := openStream(blob)
	if err != nil {
		return graph.Params{}, fmt.Errorf("hnsw: inspect %s: %w", name, err)
	}
	defer cr.Close()

	params, err := graph.ReadParams(cr)
	if err != nil {
		return graph.Params{}, fmt.Errorf("hnsw: inspect %s: %w", name, err)
	}
	return params, nil
}
