// Package embedcache holds embedding cache adapters and the vector encoding
// they share. Vectors are stored as a little-endian uint32 length followed
// by float32 bits.
package embedcache

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeVector serialises a vector.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4+len(vec)*4)
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(vec)))
	off := 4
	for _, v := range vec {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
		off += 4
	}
	return buf
}

// DecodeVector parses bytes written by EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("embedcache: entry too small (%d bytes)", len(data))
	}
	length := int(binary.LittleEndian.Uint32(data[:4]))
	data = data[4:]
	if len(data) != length*4 {
		return nil, fmt.Errorf("embedcache: length mismatch: header %d, payload %d bytes", length, len(data))
	}
	vec := make([]float32, length)
	for i := range length {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : (i+1)*4]))
	}
	return vec, nil
}
