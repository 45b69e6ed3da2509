package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
)

// Compressor handles the sample columns of stored metric snapshots. Values are
// XOR-encoded, timestamps delta-of-delta-encoded, label sets JSON-encoded; all
// three go through zstd.
type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCompressor creates a new compressor. Levels map 1..4 to the zstd speed
// presets, fastest to best.
func NewCompressor(level int) (*Compressor, error) {
	encLevel := zstd.SpeedDefault
	switch level {
	case 1:
		encLevel = zstd.SpeedFastest
	case 2:
		encLevel = zstd.SpeedDefault
	case 3:
		encLevel = zstd.SpeedBetterCompression
	case 4:
		encLevel = zstd.SpeedBestCompression
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	return &Compressor{
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// CompressTimestamps compresses millisecond timestamps using delta-of-delta
// encoding + zstd. Only the timestamps actually present on samples are passed
// here; the caller tracks presence separately.
func (c *Compressor) CompressTimestamps(timestamps []int64) ([]byte, error) {
	if len(timestamps) == 0 {
		return nil, nil
	}

	buf := new(bytes.Buffer)

	if err := binary.Write(buf, binary.LittleEndian, timestamps[0]); err != nil {
		return nil, err
	}

	var prevDelta int64 = 0
	for i := 1; i < len(timestamps); i++ {
		delta := timestamps[i] - timestamps[i-1]
		deltaOfDelta := delta - prevDelta

		if err := binary.Write(buf, binary.LittleEndian, deltaOfDelta); err != nil {
			return nil, err
		}

		prevDelta = delta
	}

	compressed := c.encoder.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len()))
	return compressed, nil
}

// DecompressTimestamps decompresses timestamps.
func (c *Compressor) DecompressTimestamps(data []byte, count int) ([]int64, error) {
	if count == 0 || len(data) == 0 {
		return nil, nil
	}

	decompressed, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}

	buf := bytes.NewReader(decompressed)
	timestamps := make([]int64, count)

	if err := binary.Read(buf, binary.LittleEndian, &timestamps[0]); err != nil {
		return nil, err
	}

	var prevDelta int64 = 0
	for i := 1; i < count; i++ {
		var deltaOfDelta int64
		if err := binary.Read(buf, binary.LittleEndian, &deltaOfDelta); err != nil {
			return nil, err
		}

		delta := deltaOfDelta + prevDelta
		timestamps[i] = timestamps[i-1] + delta
		prevDelta = delta
	}

	return timestamps, nil
}

// CompressValues compresses float64 sample values using XOR encoding + zstd.
// NaN and the infinities survive the round trip bit-exactly.
func (c *Compressor) CompressValues(values []float64) ([]byte, error) {
	if len(values) == 0 {
		return nil, nil
	}

	buf := new(bytes.Buffer)

	if err := binary.Write(buf, binary.LittleEndian, math.Float64bits(values[0])); err != nil {
		return nil, err
	}

	prevBits := math.Float64bits(values[0])
	for i := 1; i < len(values); i++ {
		currentBits := math.Float64bits(values[i])
		xorBits := currentBits ^ prevBits

		if err := binary.Write(buf, binary.LittleEndian, xorBits); err != nil {
			return nil, err
		}

		prevBits = currentBits
	}

	compressed := c.encoder.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len()))
	return compressed, nil
}

// DecompressValues decompresses float64 sample values.
func (c *Compressor) DecompressValues(data []byte, count int) ([]float64, error) {
	if count == 0 || len(data) == 0 {
		return nil, nil
	}

	decompressed, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}

	buf := bytes.NewReader(decompressed)
	values := make([]float64, count)

	var firstBits uint64
	if err := binary.Read(buf, binary.LittleEndian, &firstBits); err != nil {
		return nil, err
	}
	values[0] = math.Float64frombits(firstBits)

	prevBits := firstBits
	for i := 1; i < count; i++ {
		var xorBits uint64
		if err := binary.Read(buf, binary.LittleEndian, &xorBits); err != nil {
			return nil, err
		}

		currentBits := xorBits ^ prevBits
		values[i] = math.Float64frombits(currentBits)
		prevBits = currentBits
	}

	return values, nil
}

// CompressLabels compresses per-sample label sets as zstd-framed JSON.
func (c *Compressor) CompressLabels(labelSets []map[string]string) ([]byte, error) {
	if len(labelSets) == 0 {
		return nil, nil
	}

	raw, err := json.Marshal(labelSets)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal labels: %w", err)
	}

	compressed := c.encoder.EncodeAll(raw, make([]byte, 0, len(raw)))
	return compressed, nil
}

// DecompressLabels decompresses per-sample label sets.
func (c *Compressor) DecompressLabels(data []byte, count int) ([]map[string]string, error) {
	if count == 0 || len(data) == 0 {
		return nil, nil
	}

	decompressed, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}

	var labelSets []map[string]string
	if err := json.Unmarshal(decompressed, &labelSets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal labels: %w", err)
	}
	if len(labelSets) != count {
		return nil, fmt.Errorf("label set count mismatch: got %d, want %d", len(labelSets), count)
	}

	return labelSets, nil
}

// Close closes the compressor resources.
func (c *Compressor) Close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}
