package audio

import (
	"encoding/binary"
	"math"
)

// DecodeS16 converts little-endian signed 16-bit PCM bytes into normalized
// [-1, 1] float64 samples. A trailing odd byte is ignored.
func DecodeS16(data []byte) []float64 {
	samples := make([]float64, len(data)/2)
	for i := range samples {
		samples[i] = float64(int16(binary.LittleEndian.Uint16(data[i*2:]))) / float64(math.MaxInt16+1)
	}
	return samples
}

// EncodeS16 converts normalized float64 samples back to little-endian signed
// 16-bit PCM bytes, clamping anything outside [-1, 1].
func EncodeS16(samples []float64) []byte {
	data := make([]byte, len(samples)*2)
	for i, sample := range samples {
		scaled := sample * float64(math.MaxInt16+1)
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(scaled)))
	}
	return data
}

// Resample converts samples from inRate to outRate using linear
// interpolation. The output length is within one sample of
// len(samples)*outRate/inRate. Rates must be positive; equal rates return
// the input unchanged.
func Resample(samples []float64, inRate, outRate int) []float64 {
	if inRate == outRate || len(samples) == 0 || inRate <= 0 || outRate <= 0 {
		return samples
	}

	ratio := float64(outRate) / float64(inRate)
	outLen := int(math.Round(float64(len(samples)) * ratio))
	if outLen == 0 {
		outLen = 1
	}

	out := make([]float64, outLen)
	for i := range out {
		position := float64(i) / ratio
		left := int(position)
		if left >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := position - float64(left)
		out[i] = samples[left]*(1-frac) + samples[left+1]*frac
	}
	return out
}

// ResampleS16 is the byte-level convenience used on device boundaries: it
// decodes s16le PCM, resamples and re-encodes in one go.
func ResampleS16(data []byte, inRate, outRate int) []byte {
	if inRate == outRate {
		return data
	}
	return EncodeS16(Resample(DecodeS16(data), inRate, outRate))
}

// DownmixS16 folds interleaved s16le channels into mono by averaging.
func DownmixS16(data []byte, channels int) []byte {
	if channels <= 1 {
		return data
	}

	frames := len(data) / (2 * channels)
	out := make([]byte, frames*2)
	for frame := range frames {
		sum := 0
		for channel := range channels {
			sum += int(int16(binary.LittleEndian.Uint16(data[(frame*channels+channel)*2:])))
		}
		binary.LittleEndian.PutUint16(out[frame*2:], uint16(int16(sum/channels)))
	}
	return out
}
