package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/born-ml/simdnn/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTensor[T tensor.Float](t *testing.T, data []T, shape tensor.Shape) *tensor.Tensor[T] {
	t.Helper()
	x, err := tensor.FromSlice(data, shape)
	require.NoError(t, err)
	return x
}

// rawFile builds a SafeTensors stream from a hand-written header.
func rawFile(t *testing.T, header map[string]any, data []byte) *bytes.Reader {
	t.Helper()
	headerJSON, err := json.Marshal(header)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(headerJSON))))
	buf.Write(headerJSON)
	buf.Write(data)
	return bytes.NewReader(buf.Bytes())
}

func TestWriteRead_RoundTrip(t *testing.T) {
	w := mustTensor(t, []float32{1, -2, 3.5, 4, 5, 6}, tensor.Shape{2, 1, 3})
	b := mustTensor(t, []float32{0.25, -0.5}, tensor.Shape{2})

	var buf bytes.Buffer
	err := Write(&buf, map[string]*tensor.Tensor[float32]{
		"conv2d.weight": w,
		"conv2d.bias":   b,
	}, map[string]string{"layer": "conv2d"})
	require.NoError(t, err)

	got, meta, err := Read[float32](&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, tensor.Shape{2, 1, 3}, got["conv2d.weight"].Shape())
	assert.Equal(t, w.Data(), got["conv2d.weight"].Data())
	assert.Equal(t, b.Data(), got["conv2d.bias"].Data())
	assert.Equal(t, "conv2d", meta["layer"])
	assert.Len(t, meta[checksumKey], 64)
}

func TestWrite_SortedAndActiveRegionOnly(t *testing.T) {
	x := mustTensor(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2})
	x.SetBatch(2)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, map[string]*tensor.Tensor[float64]{"b": x, "a": x}, nil))

	got, _, err := Read[float64](bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2}, got["a"].Shape())
	assert.Equal(t, []float64{1, 2, 3, 4}, got["b"].Data())

	var headerSize uint64
	require.NoError(t, binary.Read(bytes.NewReader(buf.Bytes()), binary.LittleEndian, &headerSize))
	var header map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes()[8:8+headerSize], &header))
	var a, b tensorHeader
	require.NoError(t, json.Unmarshal(header["a"], &a))
	require.NoError(t, json.Unmarshal(header["b"], &b))
	assert.Equal(t, [2]int64{0, 32}, a.DataOffsets)
	assert.Equal(t, [2]int64{32, 64}, b.DataOffsets)
	assert.Equal(t, "F64", a.DType)
}

func TestRead_ChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, map[string]*tensor.Tensor[float32]{
		"w": mustTensor(t, []float32{1, 2}, tensor.Shape{2}),
	}, nil))
	data := buf.Bytes()
	data[len(data)-1] ^= 0xff

	_, _, err := Read[float32](bytes.NewReader(data))
	require.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestRead_DTypeMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, map[string]*tensor.Tensor[float32]{
		"w": mustTensor(t, []float32{1, 2}, tensor.Shape{2}),
	}, nil))

	_, _, err := Read[float64](&buf)
	require.ErrorIs(t, err, ErrDTypeMismatch)
}

func TestRead_InvalidHeaders(t *testing.T) {
	tests := []struct {
		name     string
		header   map[string]any
		dataSize int
		wantType string
	}{
		{
			name: "overlap",
			header: map[string]any{
				"a": tensorHeader{DType: "F32", Shape: []int64{2}, DataOffsets: [2]int64{0, 8}},
				"b": tensorHeader{DType: "F32", Shape: []int64{2}, DataOffsets: [2]int64{4, 12}},
			},
			dataSize: 12,
			wantType: "offset_overlap",
		},
		{
			name: "out of bounds",
			header: map[string]any{
				"a": tensorHeader{DType: "F32", Shape: []int64{4}, DataOffsets: [2]int64{0, 16}},
			},
			dataSize: 8,
			wantType: "out_of_bounds",
		},
		{
			name: "negative size",
			header: map[string]any{
				"a": tensorHeader{DType: "F32", Shape: []int64{1}, DataOffsets: [2]int64{8, 4}},
			},
			dataSize: 8,
			wantType: "negative_offset",
		},
		{
			name: "size mismatch",
			header: map[string]any{
				"a": tensorHeader{DType: "F32", Shape: []int64{3}, DataOffsets: [2]int64{0, 8}},
			},
			dataSize: 8,
			wantType: "size_mismatch",
		},
		{
			name: "path traversal",
			header: map[string]any{
				"../a": tensorHeader{DType: "F32", Shape: []int64{2}, DataOffsets: [2]int64{0, 8}},
			},
			dataSize: 8,
			wantType: "invalid_name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Read[float32](rawFile(t, tt.header, make([]byte, tt.dataSize)))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.wantType, verr.Type)
		})
	}
}

func TestRead_HeaderTooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(MaxHeaderSize+1)))
	_, _, err := Read[float32](&buf)
	require.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestWrite_RejectsBadNames(t *testing.T) {
	x := mustTensor(t, []float32{1}, tensor.Shape{1})
	for _, name := range []string{"", "a/b", "a\\b", "..", "__metadata__"} {
		err := Write(&bytes.Buffer{}, map[string]*tensor.Tensor[float32]{name: x}, nil)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "name %q: got %v", name, err)
		assert.Equal(t, "invalid_name", verr.Type)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linear.safetensors")
	w := mustTensor(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, Save(path, map[string]*tensor.Tensor[float64]{"linear.weight": w}, nil))

	got, _, err := Load[float64](path)
	require.NoError(t, err)
	assert.Equal(t, w.Data(), got["linear.weight"].Data())

	_, _, err = Load[float64](filepath.Join(t.TempDir(), "missing.safetensors"))
	require.Error(t, err)
}
