package audio

import (
	"bytes"
	"testing"
)

func TestChunkBase64RoundTripIsExact(t *testing.T) {
	payload := []byte{0x01, 0x02, 0xFE, 0x00, 0x7F, 0x80}
	chunk := NewChunk(payload, GetDefaultEncodingInfo(), 1)

	decoded, err := DecodePayload(chunk.Base64())
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Fatalf("round trip changed payload: got %v, expected %v", decoded, payload)
	}
}

func TestChunkViableDropsUndersizedChunks(t *testing.T) {
	chunk := NewChunk(make([]byte, MinChunkBytes-1), GetDefaultEncodingInfo(), 1)
	chunk.Data[0] = 0x7F

	if chunk.Viable() {
		t.Fatalf("expected chunk below minimum size to be dropped")
	}
}

func TestChunkViableDropsAllZeroChunks(t *testing.T) {
	chunk := NewChunk(make([]byte, MinChunkBytes*4), GetDefaultEncodingInfo(), 1)

	if chunk.Viable() {
		t.Fatalf("expected all-zero chunk to be dropped")
	}
}

func TestChunkViableKeepsOrdinarySignal(t *testing.T) {
	data := EncodeS16(make([]float64, MinChunkBytes))
	data[3] = 0x10

	chunk := NewChunk(data, GetDefaultEncodingInfo(), 1)
	if !chunk.Viable() {
		t.Fatalf("expected ordinary signal chunk to be kept")
	}
}

func TestChunkViableDropsOutOfRangeFloatSamples(t *testing.T) {
	samples := make([]float64, MinChunkBytes)
	samples[0] = 4.2

	chunk := NewChunk(EncodeF32(samples), EncodingInfo{
		SampleRate: 48000,
		Format:     EncodingFloat32,
		Channels:   1,
	}, 1)
	if chunk.Viable() {
		t.Fatalf("expected out-of-range float chunk to be dropped")
	}
}

func TestDecodePayloadRejectsInvalidBase64(t *testing.T) {
	if _, err := DecodePayload("!!not-base64!!"); err == nil {
		t.Fatalf("expected invalid base64 to error")
	}
}
