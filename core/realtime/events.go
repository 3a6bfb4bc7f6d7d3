package realtime

import (
	"encoding/json"
	"fmt"
)

// Server event types recognized by the engine. Everything else is carried
// through as [UnknownEvent] so the dispatch loop can ignore it explicitly.
const (
	EventSessionCreated = "session.created"
	EventSessionUpdated = "session.updated"
	EventError          = "error"

	EventInputTranscriptionDelta     = "conversation.item.input_audio_transcription.delta"
	EventInputTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"

	EventResponseAudioDelta      = "response.audio.delta"
	EventResponseTranscriptDelta = "response.audio_transcript.delta"
	EventResponseTranscriptDone  = "response.audio_transcript.done"

	EventFunctionCallArgumentsDone = "response.function_call_arguments.done"
	// EventFunctionCallDone is the short alias some service revisions emit
	// for completed function call arguments.
	EventFunctionCallDone = "function_call.done"

	EventResponseCreated = "response.created"
	EventResponseDone    = "response.done"
	EventInputCommitted  = "input_audio_buffer.committed"
)

// Event is a discriminated union for server events. Check the concrete type
// via type switch.
type Event interface {
	eventType() string
}

// SessionCreatedEvent acknowledges a newly established session.
type SessionCreatedEvent struct {
	EventID string `json:"event_id"`
	Session struct {
		ID    string `json:"id"`
		Model string `json:"model"`
	} `json:"session"`
}

func (SessionCreatedEvent) eventType() string { return EventSessionCreated }

// SessionUpdatedEvent acknowledges a configuration update.
type SessionUpdatedEvent struct {
	EventID string          `json:"event_id"`
	Session json.RawMessage `json:"session"`
}

func (SessionUpdatedEvent) eventType() string { return EventSessionUpdated }

// TranscriptDeltaEvent is a partial transcript of captured speech.
type TranscriptDeltaEvent struct {
	EventID string `json:"event_id"`
	ItemID  string `json:"item_id"`
	Delta   string `json:"delta"`
}

func (TranscriptDeltaEvent) eventType() string { return EventInputTranscriptionDelta }

// TranscriptCompletedEvent is the final transcript of captured speech.
type TranscriptCompletedEvent struct {
	EventID    string `json:"event_id"`
	ItemID     string `json:"item_id"`
	Transcript string `json:"transcript"`
}

func (TranscriptCompletedEvent) eventType() string { return EventInputTranscriptionCompleted }

// AudioDeltaEvent carries a base64 slice of returned speech audio.
type AudioDeltaEvent struct {
	EventID    string `json:"event_id"`
	ResponseID string `json:"response_id"`
	ItemID     string `json:"item_id"`
	Delta      string `json:"delta"`
}

func (AudioDeltaEvent) eventType() string { return EventResponseAudioDelta }

// ResponseTranscriptDeltaEvent is a partial transcript of the audio the
// service is speaking back.
type ResponseTranscriptDeltaEvent struct {
	EventID    string `json:"event_id"`
	ResponseID string `json:"response_id"`
	Delta      string `json:"delta"`
}

func (ResponseTranscriptDeltaEvent) eventType() string { return EventResponseTranscriptDelta }

// ResponseTranscriptDoneEvent is the completed spoken-response transcript.
type ResponseTranscriptDoneEvent struct {
	EventID    string `json:"event_id"`
	ResponseID string `json:"response_id"`
	Transcript string `json:"transcript"`
}

func (ResponseTranscriptDoneEvent) eventType() string { return EventResponseTranscriptDone }

// FunctionCallEvent requests a local tool invocation. Arguments arrive as a
// raw JSON string to be decoded by the tool side.
type FunctionCallEvent struct {
	EventID   string `json:"event_id"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func (FunctionCallEvent) eventType() string { return EventFunctionCallArgumentsDone }

// ErrorEvent surfaces a service-side failure.
type ErrorEvent struct {
	EventID string `json:"event_id"`
	Error   struct {
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
		Message string `json:"message"`
		Param   string `json:"param,omitempty"`
	} `json:"error"`
}

func (ErrorEvent) eventType() string { return EventError }

// AckEvent covers acknowledgement types the engine only logs.
type AckEvent struct {
	Type    string `json:"type"`
	EventID string `json:"event_id"`
}

func (e AckEvent) eventType() string { return e.Type }

// UnknownEvent holds event types the engine does not recognize.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (e UnknownEvent) eventType() string { return e.Type }

// ParseEvent unmarshals a server frame into the matching Event variant.
// Malformed JSON and frames without a type discriminator are errors; an
// unrecognized type is not.
func ParseEvent(data []byte) (Event, error) {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if header.Type == "" {
		return nil, fmt.Errorf("event missing type discriminator")
	}

	switch header.Type {
	case EventSessionCreated:
		return parseInto[SessionCreatedEvent](data)
	case EventSessionUpdated:
		return parseInto[SessionUpdatedEvent](data)
	case EventInputTranscriptionDelta:
		return parseInto[TranscriptDeltaEvent](data)
	case EventInputTranscriptionCompleted:
		return parseInto[TranscriptCompletedEvent](data)
	case EventResponseAudioDelta:
		return parseInto[AudioDeltaEvent](data)
	case EventResponseTranscriptDelta:
		return parseInto[ResponseTranscriptDeltaEvent](data)
	case EventResponseTranscriptDone:
		return parseInto[ResponseTranscriptDoneEvent](data)
	case EventFunctionCallArgumentsDone, EventFunctionCallDone:
		return parseInto[FunctionCallEvent](data)
	case EventError:
		return parseInto[ErrorEvent](data)
	case EventResponseCreated, EventResponseDone, EventInputCommitted:
		return parseInto[AckEvent](data)
	default:
		return UnknownEvent{Type: header.Type, Raw: data}, nil
	}
}

func parseInto[E Event](data []byte) (Event, error) {
	var event E
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %q event: %w", event.eventType(), err)
	}
	return event, nil
}
