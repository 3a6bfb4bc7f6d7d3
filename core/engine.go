package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/koscakluka/vox-core/core/audio"
	"github.com/koscakluka/vox-core/core/config"
	"github.com/koscakluka/vox-core/core/realtime"
	"github.com/koscakluka/vox-core/core/tools"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// State is the session lifecycle state. There is no automatic reconnection;
// after a transport failure the caller must call Connect again.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateActive       State = "active"
	StateClosing      State = "closing"
)

// Dialer opens the transport connection. Swappable so tests can run the
// engine against an in-memory transport.
type Dialer func(ctx context.Context) (realtime.Conn, error)

// Engine drives one realtime voice session: it owns the transport, the
// inbound dispatch loop, the audio pipeline and asynchronous tool fan-out.
// One session exists per engine at a time.
type Engine struct {
	settings     *config.Settings
	pipeline     *Pipeline
	registry     *tools.Registry
	conversation *Conversation

	dial               Dialer
	voice              string
	transcriptionModel string

	onTranscript func(Entry)
	onError      func(error)

	mu    sync.Mutex
	state State
	conn  realtime.Conn

	// writeMu serializes every transport write; tool completions, audio
	// chunk emission and text turns all send concurrently.
	writeMu sync.Mutex

	inflight    *inflightCalls
	baseContext context.Context
}

func NewEngine(settings *config.Settings, pipeline *Pipeline, registry *tools.Registry, opts ...EngineOption) (*Engine, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings not provided")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("audio pipeline not provided")
	}
	if registry == nil {
		return nil, fmt.Errorf("tool registry not provided")
	}

	engine := &Engine{
		settings:           settings,
		pipeline:           pipeline,
		registry:           registry,
		conversation:       NewConversation(),
		voice:              "alloy",
		transcriptionModel: "whisper-1",
		state:              StateDisconnected,
		inflight:           newInflightCalls(),
		baseContext:        context.Background(),
	}
	engine.dial = func(ctx context.Context) (realtime.Conn, error) {
		return realtime.Dial(ctx, settings.Endpoint, settings.Credential)
	}

	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Conversation returns a point-in-time snapshot of the transcript log.
func (e *Engine) Conversation() []Entry { return e.conversation.Snapshot() }

// InflightToolCalls is the number of calls dispatched but not yet closed.
func (e *Engine) InflightToolCalls() int { return e.inflight.count() }

// Connect establishes the transport, sends the single session-configuration
// event and starts the receive loop. The configuration event carries the
// complete tool snapshot: the service replaces rather than merges tool
// registrations, so splitting it across events would silently drop tools.
func (e *Engine) Connect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "connect session")
	defer span.End()

	e.mu.Lock()
	if e.state != StateDisconnected {
		state := e.state
		e.mu.Unlock()
		return fmt.Errorf("cannot connect while session is %s", state)
	}
	e.state = StateConnecting
	e.mu.Unlock()

	conn, err := e.dial(ctx)
	if err != nil {
		e.mu.Lock()
		e.state = StateDisconnected
		e.mu.Unlock()

		err = fmt.Errorf("failed to establish transport: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	e.mu.Lock()
	e.conn = conn
	e.state = StateActive
	e.mu.Unlock()
	// Tool invocations outlive disconnects; they are never forcibly
	// cancelled, their results are just dropped.
	e.baseContext = context.WithoutCancel(ctx)

	if err := e.sendEvent(realtime.NewSessionUpdateEvent(e.sessionConfig())); err != nil {
		_ = e.Disconnect()

		err = fmt.Errorf("failed to send session configuration: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	e.pipeline.SetSink(e.sendAudioChunk)
	go e.receiveLoop(conn)

	return nil
}

// Disconnect tears down the transport and halts the receive loop. In-flight
// tool invocations keep running; their results are dropped on send.
func (e *Engine) Disconnect() error {
	e.mu.Lock()
	if e.state == StateDisconnected {
		e.mu.Unlock()
		return nil
	}
	e.state = StateClosing
	conn := e.conn
	e.mu.Unlock()

	if err := e.pipeline.StopCapture(); err != nil {
		logger.Warn("failed to stop capture on disconnect", "error", err)
	}

	var closeErr error
	if conn != nil {
		closeErr = conn.Close()
	}

	e.mu.Lock()
	e.state = StateDisconnected
	e.conn = nil
	e.mu.Unlock()

	return closeErr
}

// StartCapture begins streaming microphone audio into the session.
func (e *Engine) StartCapture(ctx context.Context) error {
	if e.State() != StateActive {
		return fmt.Errorf("session not active")
	}
	return e.pipeline.StartCapture(ctx)
}

func (e *Engine) StopCapture() error { return e.pipeline.StopCapture() }

// SendText sends a typed user turn: a structured conversation item followed
// by a response request.
func (e *Engine) SendText(text string) error {
	if err := e.sendEvent(realtime.NewUserTextItemEvent(text)); err != nil {
		return fmt.Errorf("failed to send text turn: %w", err)
	}
	if err := e.sendEvent(realtime.NewResponseCreateEvent()); err != nil {
		return fmt.Errorf("failed to request response: %w", err)
	}
	return nil
}

// CommitInput asks the service to treat appended audio as a finished turn.
func (e *Engine) CommitInput() error {
	return e.sendEvent(realtime.NewInputAudioCommitEvent())
}

// CreateResponse asks the service to respond to the conversation as-is.
func (e *Engine) CreateResponse() error {
	return e.sendEvent(realtime.NewResponseCreateEvent())
}

func (e *Engine) sessionConfig() realtime.SessionConfig {
	snapshot := e.registry.Snapshot()
	definitions := make([]realtime.ToolDefinition, 0, len(snapshot))
	for _, descriptor := range snapshot {
		definitions = append(definitions, realtime.ToolDefinition{
			Type:        "function",
			Name:        descriptor.Name,
			Description: descriptor.Description,
			Parameters:  descriptor.Schema,
		})
	}

	return realtime.SessionConfig{
		Instructions:       e.settings.Instructions,
		Voice:              e.voice,
		InputAudioFormat:   "pcm16",
		OutputAudioFormat:  "pcm16",
		InputTranscription: &realtime.InputTranscription{Model: e.transcriptionModel},
		TurnDetection: &realtime.TurnDetection{
			Type:              "server_vad",
			Threshold:         e.settings.VADThreshold,
			PrefixPaddingMs:   e.settings.VADPrefixPaddingMs,
			SilenceDurationMs: e.settings.VADSilenceMs,
		},
		Tools: definitions,
	}
}

// receiveLoop is the single re-armed read per session. A failed read marks
// the session disconnected and ends the loop without retrying.
func (e *Engine) receiveLoop(conn realtime.Conn) {
	// One worker owns the playback path so audio deltas reach the device in
	// arrival order; the channel buffer keeps the next read from waiting on
	// decode and resampling.
	playback := make(chan string, 64)
	defer close(playback)
	go e.playbackLoop(playback)

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			e.markDisconnected(err)
			return
		}

		if msgType == realtime.BinaryMessage {
			logger.Warn("discarding unexpected binary frame", "bytes", len(msg))
			continue
		}

		event, err := realtime.ParseEvent(msg)
		if err != nil {
			logger.Warn("discarding unparsable event", "error", err)
			continue
		}

		e.dispatch(event, playback)
	}
}

func (e *Engine) playbackLoop(deltas <-chan string) {
	for delta := range deltas {
		e.pipeline.Playback(delta)
	}
}

func (e *Engine) dispatch(event realtime.Event, playback chan<- string) {
	switch event := event.(type) {
	case realtime.TranscriptDeltaEvent:
		e.appendPartial(EntryRoleUser, event.Delta)
	case realtime.TranscriptCompletedEvent:
		e.appendFinal(EntryRoleUser, event.Transcript)
	case realtime.ResponseTranscriptDeltaEvent:
		e.appendPartial(EntryRoleAssistant, event.Delta)
	case realtime.ResponseTranscriptDoneEvent:
		e.appendFinal(EntryRoleAssistant, event.Transcript)

	case realtime.AudioDeltaEvent:
		playback <- event.Delta

	case realtime.FunctionCallEvent:
		call := newToolCall(event.CallID, event.Name, event.Arguments)
		if !e.inflight.track(call) {
			logger.Warn("ignoring duplicate tool call", "call_id", call.ID)
			return
		}
		go e.invokeToolCall(call)

	case realtime.ErrorEvent:
		err := fmt.Errorf("service error %s: %s", event.Error.Type, event.Error.Message)
		logger.Error("received service error", "error", err)
		if e.onError != nil {
			e.onError(err)
		}

	case realtime.SessionCreatedEvent:
		logger.Info("session created", "session_id", event.Session.ID, "model", event.Session.Model)
	case realtime.SessionUpdatedEvent:
		logger.Debug("session configuration acknowledged", "event_id", event.EventID)
	case realtime.AckEvent:
		logger.Debug("session acknowledgement", "type", event.Type)

	default:
		// Unrecognized event types are ignored; the loop continues.
	}
}

// invokeToolCall runs one tool invocation to completion and delivers
// exactly one function-result event for it, success or not.
func (e *Engine) invokeToolCall(call *ToolCall) {
	defer e.inflight.finish(call.ID)

	ctx, span := tracer.Start(e.baseContext, "invoke tool call")
	defer span.End()
	span.SetAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
	)

	call.advance(ToolCallInvoking)

	var output string
	if call.Arguments != "" && !json.Valid([]byte(call.Arguments)) {
		call.advance(ToolCallFailed)
		err := fmt.Errorf("failed to decode arguments for tool %q: invalid JSON", call.Name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		output = errorPayload(err)
	} else {
		result, err := e.registry.Invoke(ctx, call.Name, json.RawMessage(call.Arguments))
		if err != nil {
			call.advance(ToolCallFailed)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			output = errorPayload(err)
		} else {
			call.advance(ToolCallDone)
			output = result
		}
	}

	if err := e.sendEvent(realtime.NewFunctionResultItemEvent(call.ID, output)); err != nil {
		logger.Warn("dropping tool call result", "call_id", call.ID, "error", err)
		return
	}
	if err := e.sendEvent(realtime.NewResponseCreateEvent()); err != nil {
		logger.Warn("failed to request response after tool call", "call_id", call.ID, "error", err)
	}
}

// sendAudioChunk forwards one converted capture chunk as an append event.
// Intentionally not logged per chunk; these fire many times a second.
func (e *Engine) sendAudioChunk(chunk audio.Chunk) {
	if err := e.sendEvent(realtime.NewInputAudioAppendEvent(chunk.Base64())); err != nil {
		logger.Debug("dropping audio chunk", "sequence", chunk.Sequence, "error", err)
	}
}

// sendEvent is the single writer onto the transport. Sends are checked
// against session state so completions landing after a disconnect are
// refused instead of writing to a dead connection.
func (e *Engine) sendEvent(event any) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	e.mu.Lock()
	state := e.state
	conn := e.conn
	e.mu.Unlock()

	if state != StateActive || conn == nil {
		return fmt.Errorf("session not active")
	}

	if err := conn.WriteJSON(event); err != nil {
		return fmt.Errorf("failed to write to transport: %w", err)
	}
	return nil
}

func (e *Engine) appendPartial(role EntryRole, delta string) {
	e.conversation.AppendPartial(role, delta)
	if e.onTranscript != nil {
		e.onTranscript(Entry{Role: role, Text: delta})
	}
}

func (e *Engine) appendFinal(role EntryRole, transcript string) {
	e.conversation.AppendFinal(role, transcript)
	if e.onTranscript != nil {
		e.onTranscript(Entry{Role: role, Text: transcript, Final: true})
	}
}

// markDisconnected records a transport failure. The caller observes it
// through State; there is no automatic retry.
func (e *Engine) markDisconnected(cause error) {
	e.mu.Lock()
	wasClosing := e.state == StateClosing || e.state == StateDisconnected
	e.state = StateDisconnected
	e.conn = nil
	e.mu.Unlock()

	if err := e.pipeline.StopCapture(); err != nil {
		logger.Warn("failed to stop capture after transport loss", "error", err)
	}

	if !wasClosing {
		logger.Error("transport failed", "error", cause)
		if e.onError != nil {
			e.onError(fmt.Errorf("transport failed: %w", cause))
		}
	}
}

func errorPayload(err error) string {
	payload, marshalErr := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: err.Error()})
	if marshalErr != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(payload)
}
