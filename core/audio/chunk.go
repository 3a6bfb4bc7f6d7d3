package audio

import "encoding/base64"

// MinChunkBytes is the smallest capture chunk worth forwarding. Device
// callbacks occasionally deliver truncated frames on start/stop edges;
// anything below this is treated as a glitch.
const MinChunkBytes = 32

// Chunk is a single converted capture frame on its way to the wire. It is
// immutable after construction and consumed exactly once by the outbound
// encoder.
type Chunk struct {
	Data     []byte
	Encoding EncodingInfo
	Sequence uint64
}

// NewChunk wraps converted PCM bytes with their encoding and a caller
// supplied monotonically increasing sequence number.
func NewChunk(data []byte, encoding EncodingInfo, sequence uint64) Chunk {
	return Chunk{Data: data, Encoding: encoding, Sequence: sequence}
}

// Viable reports whether a chunk should be forwarded. Chunks below the
// minimum size, chunks that decode to pure silence and chunks with samples
// outside the normalized range are sensor glitches, not errors.
func (c Chunk) Viable() bool {
	if len(c.Data) < MinChunkBytes {
		return false
	}

	switch {
	case c.Encoding.Format.IsFloat():
		return floatSamplesViable(c.Data)
	default:
		return !allZero(c.Data)
	}
}

// Base64 encodes the chunk payload the way append events carry it.
func (c Chunk) Base64() string {
	return base64.StdEncoding.EncodeToString(c.Data)
}

// DecodePayload reverses Base64 for inbound audio deltas.
func DecodePayload(payload string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(payload)
}

func allZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

func floatSamplesViable(data []byte) bool {
	samples := DecodeF32(data)
	anySignal := false
	for _, sample := range samples {
		if sample > 1 || sample < -1 {
			return false
		}
		if sample != 0 {
			anySignal = true
		}
	}
	return anySignal
}
