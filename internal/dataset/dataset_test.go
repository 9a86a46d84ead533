package dataset

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFvecs(t *testing.T) {
	set := &Set{Dim: 3, Data: []float32{1, 2, 3, -4.5, 0, 1e-3}}

	var buf bytes.Buffer
	require.NoError(t, WriteFvecs(&buf, set))
	assert.Equal(t, 2*(4+3*4), buf.Len())
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf.Bytes()[:4]))

	got, err := ReadFvecs(bytes.NewReader(buf.Bytes()), 0)
	require.NoError(t, err)
	assert.Equal(t, set, got)
	assert.Equal(t, []float32{-4.5, 0, 1e-3}, got.Row(1))

	first, err := ReadFvecs(bytes.NewReader(buf.Bytes()), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Rows())

	_, err = ReadFvecs(bytes.NewReader(buf.Bytes()[:buf.Len()-2]), 0)
	require.Error(t, err)
}

func TestFvecsRagged(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFvecs(&buf, &Set{Dim: 2, Data: []float32{1, 2}}))
	require.NoError(t, WriteFvecs(&buf, &Set{Dim: 1, Data: []float32{3}}))

	_, err := ReadFvecs(&buf, 0)
	require.ErrorIs(t, err, ErrRagged)
}

func TestCSV(t *testing.T) {
	in := "a,b,c\n1, 2,3\n4,5.5,-6\n"
	set, err := ReadCSV(strings.NewReader(in), 0)
	require.NoError(t, err)
	assert.Equal(t, &Set{Dim: 3, Data: []float32{1, 2, 3, 4, 5.5, -6}}, set)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, set))
	assert.Equal(t, "1,2,3\n4,5.5,-6\n", buf.String())

	_, err = ReadCSV(strings.NewReader("1,2\n3\n"), 0)
	require.ErrorIs(t, err, ErrRagged)

	_, err = ReadCSV(strings.NewReader("1,2\n3,x\n"), 0)
	require.Error(t, err)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	set := &Set{Dim: 2, Data: []float32{1, 2, 3, 4, 5, 6}}

	for _, name := range []string{"v.fvecs", "v.csv"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, set))

		got, err := ReadFile(path, 2)
		require.NoError(t, err)
		assert.Equal(t, set.Slice(0, 2), got)
	}

	_, err := ReadFile(filepath.Join(dir, "missing.fvecs"), 0)
	require.Error(t, err)
}
