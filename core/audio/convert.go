package audio

import (
	"encoding/binary"
	"math"
)

// DecodeF32 converts little-endian 32-bit float PCM bytes into float64
// samples without rescaling; float PCM is already in the [-1, 1] domain.
func DecodeF32(data []byte) []float64 {
	samples := make([]float64, len(data)/4)
	for i := range samples {
		samples[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return samples
}

// EncodeF32 converts float64 samples to little-endian 32-bit float PCM.
func EncodeF32(samples []float64) []byte {
	data := make([]byte, len(samples)*4)
	for i, sample := range samples {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(float32(sample)))
	}
	return data
}

// ToWire converts device-native PCM into the canonical wire encoding:
// mono s16le at the wire sample rate. Float sources are converted through
// the normalized domain first.
func ToWire(data []byte, from EncodingInfo, wire EncodingInfo) []byte {
	var samples []float64
	switch {
	case from.Format.IsFloat():
		samples = DecodeF32(data)
	default:
		samples = DecodeS16(data)
	}

	if from.Channels > 1 {
		samples = downmix(samples, from.Channels)
	}
	samples = Resample(samples, from.SampleRate, wire.SampleRate)
	return EncodeS16(samples)
}

// FromWire converts wire s16le PCM into the device playback encoding.
func FromWire(data []byte, wire EncodingInfo, to EncodingInfo) []byte {
	samples := Resample(DecodeS16(data), wire.SampleRate, to.SampleRate)
	if to.Format.IsFloat() {
		return EncodeF32(samples)
	}
	return EncodeS16(samples)
}

func downmix(samples []float64, channels int) []float64 {
	frames := len(samples) / channels
	out := make([]float64, frames)
	for frame := range frames {
		sum := 0.0
		for channel := range channels {
			sum += samples[frame*channels+channel]
		}
		out[frame] = sum / float64(channels)
	}
	return out
}
