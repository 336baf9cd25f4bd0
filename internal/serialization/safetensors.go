package serialization

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/born-ml/simdnn/internal/tensor"
)

const metadataKey = "__metadata__"

// tensorHeader describes one tensor in the SafeTensors header.
type tensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Write writes the active region of every tensor, and the metadata, in
// SafeTensors format. A checksum of the data section is added to the
// metadata.
func Write[T tensor.Float](w io.Writer, tensors map[string]*tensor.Tensor[T], metadata map[string]string) error {
	names := slices.Sorted(maps.Keys(tensors))
	dtype := dtypeToSafeTensors(tensor.TypeOf[T]())

	header := make(map[string]any, len(names)+1)
	var data bytes.Buffer
	for _, name := range names {
		if name == metadataKey {
			return &ValidationError{Type: "invalid_name", Tensor: name, Details: "reserved name"}
		}
		if err := ValidateTensorName(name); err != nil {
			return err
		}

		t := tensors[name]
		start := int64(data.Len())
		if err := binary.Write(&data, binary.LittleEndian, t.Data()); err != nil {
			return fmt.Errorf("failed to encode tensor %s: %w", name, err)
		}

		shape := t.Shape()
		shapeInt64 := make([]int64, len(shape))
		for i, dim := range shape {
			shapeInt64[i] = int64(dim)
		}
		header[name] = tensorHeader{
			DType:       dtype,
			Shape:       shapeInt64,
			DataOffsets: [2]int64{start, int64(data.Len())},
		}
	}

	meta := make(map[string]string, len(metadata)+1)
	maps.Copy(meta, metadata)
	meta[checksumKey] = computeChecksum(data.Bytes())
	header[metadataKey] = meta

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

// Read parses a SafeTensors stream whose tensors all have element type T.
// Offsets, names and the data checksum are validated before any tensor is
// decoded.
func Read[T tensor.Float](r io.Reader) (map[string]*tensor.Tensor[T], map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &rawMap); err != nil {
		return nil, nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	var meta map[string]string
	if raw, ok := rawMap[metadataKey]; ok {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		delete(rawMap, metadataKey)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if err := validateChecksum(data, meta[checksumKey]); err != nil {
		return nil, nil, err
	}

	want := dtypeToSafeTensors(tensor.TypeOf[T]())
	infos := make(map[string]tensorHeader, len(rawMap))
	metas := make([]tensorMeta, 0, len(rawMap))
	for name, raw := range rawMap {
		if err := ValidateTensorName(name); err != nil {
			return nil, nil, err
		}
		var info tensorHeader
		if err := json.Unmarshal(raw, &info); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal tensor %s: %w", name, err)
		}
		if info.DType != want {
			return nil, nil, fmt.Errorf("%w: tensor %s is %s, want %s", ErrDTypeMismatch, name, info.DType, want)
		}
		infos[name] = info
		metas = append(metas, tensorMeta{
			Name:   name,
			Offset: info.DataOffsets[0],
			Size:   info.DataOffsets[1] - info.DataOffsets[0],
		})
	}
	if err := validateTensorOffsets(metas, int64(len(data))); err != nil {
		return nil, nil, err
	}

	tensors := make(map[string]*tensor.Tensor[T], len(infos))
	elemSize := int64(tensor.TypeOf[T]().Size())
	for name, info := range infos {
		shape := make(tensor.Shape, len(info.Shape))
		for i, dim := range info.Shape {
			shape[i] = int(dim)
		}
		if err := shape.Validate(); err != nil {
			return nil, nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		start, end := info.DataOffsets[0], info.DataOffsets[1]
		if int64(shape.NumElements())*elemSize != end-start {
			return nil, nil, &ValidationError{
				Type:    "size_mismatch",
				Tensor:  name,
				Details: fmt.Sprintf("shape %v needs %d bytes, data has %d", shape, int64(shape.NumElements())*elemSize, end-start),
			}
		}

		t := tensor.New[T](shape)
		if err := binary.Read(bytes.NewReader(data[start:end]), binary.LittleEndian, t.Data()); err != nil {
			return nil, nil, fmt.Errorf("failed to decode tensor %s: %w", name, err)
		}
		tensors[name] = t
	}
	return tensors, meta, nil
}

// Save writes tensors to a SafeTensors file at path.
func Save[T tensor.Float](path string, tensors map[string]*tensor.Tensor[T], metadata map[string]string) (err error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	w := bufio.NewWriter(file)
	if err := Write(w, tensors, metadata); err != nil {
		return err
	}
	return w.Flush()
}

// Load reads a SafeTensors file written by Save.
func Load[T tensor.Float](path string) (map[string]*tensor.Tensor[T], map[string]string, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close() // Best effort close
	}()

	tensors, meta, err := Read[T](bufio.NewReader(file))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return tensors, meta, nil
}

// dtypeToSafeTensors converts tensor.DataType to SafeTensors dtype string.
func dtypeToSafeTensors(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return "F32"
	case tensor.Float64:
		return "F64"
	default:
		return dt.String()
	}
}
