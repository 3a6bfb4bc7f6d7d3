package audio

import (
	"math"
	"testing"
)

func TestResampleLengthStaysWithinOneSampleOfRatio(t *testing.T) {
	rates := []int{8000, 16000, 24000, 44100, 48000}
	lengths := []int{1, 7, 240, 480, 1024, 4801}

	for _, inRate := range rates {
		for _, outRate := range rates {
			for _, length := range lengths {
				samples := make([]float64, length)
				out := Resample(samples, inRate, outRate)

				expected := float64(length) * float64(outRate) / float64(inRate)
				if diff := math.Abs(float64(len(out)) - expected); diff > 1 {
					t.Fatalf("resample %d samples %d->%d: got %d, expected %.2f±1",
						length, inRate, outRate, len(out), expected)
				}
			}
		}
	}
}

func TestResampleInterpolatesLinearly(t *testing.T) {
	// Doubling the rate of a ramp should place midpoints between neighbours.
	out := Resample([]float64{0, 1}, 1, 2)

	if len(out) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(out))
	}
	expected := []float64{0, 0.5, 1, 1}
	for i, sample := range out {
		if math.Abs(sample-expected[i]) > 1e-9 {
			t.Fatalf("sample %d: got %f, expected %f", i, sample, expected[i])
		}
	}
}

func TestResampleSameRateReturnsInputUnchanged(t *testing.T) {
	in := []float64{0.25, -0.5, 0.75}
	out := Resample(in, 24000, 24000)

	if len(out) != len(in) {
		t.Fatalf("expected identical length, got %d", len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d changed: got %f, expected %f", i, out[i], in[i])
		}
	}
}

func TestS16RoundTripPreservesBytes(t *testing.T) {
	data := []byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80, 0x34, 0x12}

	roundTripped := EncodeS16(DecodeS16(data))

	if len(roundTripped) != len(data) {
		t.Fatalf("expected %d bytes, got %d", len(data), len(roundTripped))
	}
	for i := range data {
		if roundTripped[i] != data[i] {
			t.Fatalf("byte %d: got %#x, expected %#x", i, roundTripped[i], data[i])
		}
	}
}

func TestEncodeS16ClampsOutOfRangeSamples(t *testing.T) {
	data := EncodeS16([]float64{2.0, -2.0})

	samples := DecodeS16(data)
	if samples[0] < 0.99 {
		t.Fatalf("expected positive overflow to clamp near 1, got %f", samples[0])
	}
	if samples[1] > -0.99 {
		t.Fatalf("expected negative overflow to clamp near -1, got %f", samples[1])
	}
}

func TestToWireDownmixesAndResamples(t *testing.T) {
	// Two channels of opposite ramps cancel to silence after downmix.
	stereo := EncodeS16([]float64{0.5, -0.5, 0.25, -0.25, 0.1, -0.1, 0.3, -0.3})
	interleaved := make([]byte, len(stereo))
	copy(interleaved, stereo)

	out := ToWire(interleaved,
		EncodingInfo{SampleRate: 48000, Format: EncodingLinear16, Channels: 2},
		EncodingInfo{SampleRate: 24000, Format: EncodingLinear16, Channels: 1})

	for _, sample := range DecodeS16(out) {
		if math.Abs(sample) > 1e-3 {
			t.Fatalf("expected downmixed silence, got %f", sample)
		}
	}
}

func TestDownmixS16AveragesChannels(t *testing.T) {
	stereo := EncodeS16([]float64{0.5, 0.25, -0.5, -0.25})

	mono := DecodeS16(DownmixS16(stereo, 2))

	if len(mono) != 2 {
		t.Fatalf("expected 2 mono samples, got %d", len(mono))
	}
	if math.Abs(mono[0]-0.375) > 1e-3 {
		t.Fatalf("expected averaged first frame near 0.375, got %f", mono[0])
	}
	if math.Abs(mono[1]+0.375) > 1e-3 {
		t.Fatalf("expected averaged second frame near -0.375, got %f", mono[1])
	}
}
