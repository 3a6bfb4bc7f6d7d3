package config

import (
	"fmt"
	"os"
	"strconv"
)

// Keys looked up from a [Source].
const (
	KeyEndpoint     = "VOX_REALTIME_URL"
	KeyCredential   = "VOX_API_KEY"
	KeyInstructions = "VOX_INSTRUCTIONS"

	KeyVADThreshold       = "VOX_VAD_THRESHOLD"
	KeyVADPrefixPaddingMs = "VOX_VAD_PREFIX_PADDING_MS"
	KeyVADSilenceMs       = "VOX_VAD_SILENCE_DURATION_MS"

	DefaultEndpoint = "wss://api.openai.com/v1/realtime?model=gpt-4o-realtime-preview"
)

// Source resolves named string values. Implementations decide where values
// come from; the engine only cares that required ones resolve.
type Source interface {
	Lookup(name string) (string, bool)
}

// Env is a Source backed by process environment variables.
type Env struct{}

func (Env) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// Static is a Source backed by a fixed map, mostly for tests and embedding.
type Static map[string]string

func (s Static) Lookup(name string) (string, bool) {
	value, ok := s[name]
	return value, ok
}

// Settings is the resolved startup configuration.
type Settings struct {
	Endpoint     string
	Credential   string
	Instructions string

	VADThreshold       float64
	VADPrefixPaddingMs int
	VADSilenceMs       int
}

// Load resolves settings from source. A missing credential is a
// construction-time failure; everything else has a usable default.
func Load(source Source) (*Settings, error) {
	if source == nil {
		return nil, fmt.Errorf("config source not provided")
	}

	credential, ok := source.Lookup(KeyCredential)
	if !ok || credential == "" {
		return nil, fmt.Errorf("required configuration %q not found", KeyCredential)
	}

	settings := &Settings{
		Endpoint:           DefaultEndpoint,
		Credential:         credential,
		VADThreshold:       0.5,
		VADPrefixPaddingMs: 300,
		VADSilenceMs:       500,
	}

	if endpoint, ok := source.Lookup(KeyEndpoint); ok && endpoint != "" {
		settings.Endpoint = endpoint
	}
	if instructions, ok := source.Lookup(KeyInstructions); ok {
		settings.Instructions = instructions
	}

	if raw, ok := source.Lookup(KeyVADThreshold); ok {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %q: %w", KeyVADThreshold, err)
		}
		settings.VADThreshold = threshold
	}
	if raw, ok := source.Lookup(KeyVADPrefixPaddingMs); ok {
		padding, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %q: %w", KeyVADPrefixPaddingMs, err)
		}
		settings.VADPrefixPaddingMs = padding
	}
	if raw, ok := source.Lookup(KeyVADSilenceMs); ok {
		silence, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %q: %w", KeyVADSilenceMs, err)
		}
		settings.VADSilenceMs = silence
	}

	return settings, nil
}
