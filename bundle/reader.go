package bundle

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
)

// TensorData reads the raw data of a float32 tensor from the memory-mapped
// weights file. It is intended for engine implementations and inspection
// tooling; the annotator core never interprets weights.
func (b *Bundle) TensorData(name string) ([]float32, []int, error) {
	info, ok := b.Header.Tensors[name]
	if !ok {
		return nil, nil, errors.Errorf("tensor %s not found in %s", name, b.WeightsPath())
	}
	if info.Dtype != "F32" {
		return nil, nil, errors.Errorf("tensor %s has dtype %s, only F32 is supported here", name, info.Dtype)
	}

	reader, err := mmap.Open(b.WeightsPath())
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to mmap %s", b.WeightsPath())
	}
	defer reader.Close()

	data := make([]byte, info.SizeBytes())
	if _, err := reader.ReadAt(data, b.dataOffset+info.DataOffsets[0]); err != nil && err != io.EOF {
		return nil, nil, errors.Wrapf(err, "failed to read tensor %s", name)
	}

	n := info.NumElements()
	if int64(len(data)) != n*4 {
		return nil, nil, errors.Errorf("tensor %s data size mismatch: got %d bytes, expected %d", name, len(data), n*4)
	}
	out := make([]float32, n)
	for i := int64(0); i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : (i+1)*4]))
	}
	shape := make([]int, len(info.Shape))
	copy(shape, info.Shape)
	return out, shape, nil
}
