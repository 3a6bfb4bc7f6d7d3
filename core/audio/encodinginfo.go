package audio

const (
	// DefaultWireSampleRate is the sample rate the remote service expects for
	// both appended input audio and returned audio deltas.
	DefaultWireSampleRate = 24000
	DefaultFormat         = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultWireSampleRate, Format: encodingFormat(DefaultFormat), Channels: 1}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
	Channels   int
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	case EncodingLinear16, EncodingFloat32:
		return 0
	}

	return 0
}

// BytesPerFrame is the size of a single frame across all channels.
func (e EncodingInfo) BytesPerFrame() int {
	channels := e.Channels
	if channels == 0 {
		channels = 1
	}
	return e.Format.ByteSize() * channels
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	case EncodingFloat32:
		return 4
	}
	return -1
}

// IsFloat reports whether samples live in a floating point domain rather
// than integer PCM.
func (e encodingFormat) IsFloat() bool {
	return e == EncodingFloat32
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
	EncodingFloat32  encodingFormat = "float32"
)
