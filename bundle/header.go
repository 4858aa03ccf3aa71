package bundle

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// maxHeaderBytes is a sanity bound on the JSON header size.
const maxHeaderBytes = 100 * 1024 * 1024

// TensorInfo describes one tensor entry of a safetensors header.
type TensorInfo struct {
	Name        string   `json:"-"`
	Dtype       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // relative to the end of the header
}

// NumElements returns the element count implied by the shape.
func (ti *TensorInfo) NumElements() int64 {
	n := int64(1)
	for _, d := range ti.Shape {
		n *= int64(d)
	}
	return n
}

// SizeBytes returns the byte size of the tensor data.
func (ti *TensorInfo) SizeBytes() int64 {
	return ti.DataOffsets[1] - ti.DataOffsets[0]
}

// Header is the parsed JSON header of a safetensors file.
type Header struct {
	Tensors  map[string]*TensorInfo
	Metadata map[string]string
}

// parseHeader reads and parses the header of a safetensors file.
// Safetensors format:
//
//	[8 bytes: header size as little-endian u64]
//	[header_size bytes: JSON header]
//	[remaining bytes: tensor data]
//
// The returned offset is the file position where tensor data begins.
func parseHeader(path string) (*Header, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	var headerSize uint64
	if err := binary.Read(f, binary.LittleEndian, &headerSize); err != nil {
		return nil, 0, errors.Wrap(err, "failed to read header size")
	}
	if headerSize > maxHeaderBytes {
		return nil, 0, errors.Errorf("header size too large: %d bytes", headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(f, headerBytes); err != nil {
		return nil, 0, errors.Wrap(err, "failed to read header JSON")
	}

	var rawHeader map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &rawHeader); err != nil {
		return nil, 0, errors.Wrap(err, "failed to parse header JSON")
	}

	header := &Header{
		Tensors:  make(map[string]*TensorInfo),
		Metadata: make(map[string]string),
	}
	for key, value := range rawHeader {
		if key == "__metadata__" {
			if err := json.Unmarshal(value, &header.Metadata); err != nil {
				return nil, 0, errors.Wrap(err, "failed to parse __metadata__")
			}
			continue
		}
		var ti TensorInfo
		if err := json.Unmarshal(value, &ti); err != nil {
			return nil, 0, errors.Wrapf(err, "failed to parse tensor metadata for %s", key)
		}
		ti.Name = key
		header.Tensors[key] = &ti
	}

	return header, int64(8 + headerSize), nil
}
