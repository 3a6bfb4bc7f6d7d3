package engine

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

// WithDialer replaces the transport dialer. Used by consumers that manage
// their own connection setup and by tests.
func WithDialer(dial Dialer) EngineOption {
	return func(e *Engine) {
		if dial != nil {
			e.dial = dial
		}
	}
}

// WithVoice selects the voice the service speaks with.
func WithVoice(voice string) EngineOption {
	return func(e *Engine) {
		if voice != "" {
			e.voice = voice
		}
	}
}

// WithTranscriptionModel selects the model used to transcribe captured
// speech.
func WithTranscriptionModel(model string) EngineOption {
	return func(e *Engine) {
		if model != "" {
			e.transcriptionModel = model
		}
	}
}

// WithTranscriptCallback is called for every transcript append, partial and
// final.
func WithTranscriptCallback(onTranscript func(Entry)) EngineOption {
	return func(e *Engine) { e.onTranscript = onTranscript }
}

// WithErrorCallback surfaces service errors and transport failures.
func WithErrorCallback(onError func(error)) EngineOption {
	return func(e *Engine) { e.onError = onError }
}
