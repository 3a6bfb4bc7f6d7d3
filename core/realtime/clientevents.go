package realtime

import "github.com/google/uuid"

// Client event types.
const (
	ClientEventSessionUpdate    = "session.update"
	ClientEventInputAudioAppend = "input_audio_buffer.append"
	ClientEventInputAudioCommit = "input_audio_buffer.commit"
	ClientEventItemCreate       = "conversation.item.create"
	ClientEventResponseCreate   = "response.create"
)

// TurnDetection tunes server-side voice activity detection.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
}

// InputTranscription enables transcription of captured speech.
type InputTranscription struct {
	Model string `json:"model"`
}

// ToolDefinition is the wire form of one registered tool.
type ToolDefinition struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters"`
}

// SessionConfig is the payload of the single session.update sent on connect.
// The service replaces rather than merges tool registrations, so the full
// tool list must travel in one event.
type SessionConfig struct {
	Instructions       string              `json:"instructions,omitempty"`
	Voice              string              `json:"voice,omitempty"`
	InputAudioFormat   string              `json:"input_audio_format,omitempty"`
	OutputAudioFormat  string              `json:"output_audio_format,omitempty"`
	InputTranscription *InputTranscription `json:"input_audio_transcription,omitempty"`
	TurnDetection      *TurnDetection      `json:"turn_detection,omitempty"`
	Tools              []ToolDefinition    `json:"tools,omitempty"`
}

// SessionUpdateEvent replaces the active session configuration.
type SessionUpdateEvent struct {
	EventID string        `json:"event_id"`
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

func NewSessionUpdateEvent(session SessionConfig) SessionUpdateEvent {
	return SessionUpdateEvent{EventID: uuid.NewString(), Type: ClientEventSessionUpdate, Session: session}
}

// InputAudioAppendEvent carries one base64 chunk of captured audio.
type InputAudioAppendEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Audio   string `json:"audio"`
}

func NewInputAudioAppendEvent(audio string) InputAudioAppendEvent {
	return InputAudioAppendEvent{EventID: uuid.NewString(), Type: ClientEventInputAudioAppend, Audio: audio}
}

// BareEvent is a control event with no payload beyond its type tag.
type BareEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
}

func NewInputAudioCommitEvent() BareEvent {
	return BareEvent{EventID: uuid.NewString(), Type: ClientEventInputAudioCommit}
}

func NewResponseCreateEvent() BareEvent {
	return BareEvent{EventID: uuid.NewString(), Type: ClientEventResponseCreate}
}

// ConversationItem is the inner item object of an item create event.
type ConversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ItemContent `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

type ItemContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ItemCreateEvent appends a structured item to the remote conversation.
type ItemCreateEvent struct {
	EventID string           `json:"event_id"`
	Type    string           `json:"type"`
	Item    ConversationItem `json:"item"`
}

// NewUserTextItemEvent wraps a typed user message.
func NewUserTextItemEvent(text string) ItemCreateEvent {
	return ItemCreateEvent{
		EventID: uuid.NewString(),
		Type:    ClientEventItemCreate,
		Item: ConversationItem{
			Type:    "message",
			Role:    "user",
			Content: []ItemContent{{Type: "input_text", Text: text}},
		},
	}
}

// NewFunctionResultItemEvent delivers a tool invocation result correlated by
// call ID. Errors travel the same way so every call the service issues gets
// closure.
func NewFunctionResultItemEvent(callID, output string) ItemCreateEvent {
	return ItemCreateEvent{
		EventID: uuid.NewString(),
		Type:    ClientEventItemCreate,
		Item: ConversationItem{
			Type:   "function_call_output",
			CallID: callID,
			Output: output,
		},
	}
}
