package engine

import "sync"

// ToolCallStatus moves monotonically forward; a call never returns to an
// earlier status.
type ToolCallStatus int

const (
	ToolCallPending ToolCallStatus = iota
	ToolCallInvoking
	ToolCallDone
	ToolCallFailed
)

// ToolCall is one remote request for a local function invocation. It exists
// from dispatch of the function-call event until its result event is sent.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string

	mu     sync.Mutex
	status ToolCallStatus
}

func newToolCall(id, name, arguments string) *ToolCall {
	return &ToolCall{ID: id, Name: name, Arguments: arguments, status: ToolCallPending}
}

func (c *ToolCall) Status() ToolCallStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// advance moves the status forward; backwards transitions are ignored.
func (c *ToolCall) advance(status ToolCallStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if status > c.status {
		c.status = status
	}
}

// inflightCalls tracks the session's tool calls by call ID. Call IDs are
// unique within a session's lifetime, so completed IDs are remembered and a
// redelivered event is refused even after its original call closed.
type inflightCalls struct {
	mu    sync.Mutex
	calls map[string]*ToolCall
	done  map[string]bool
}

func newInflightCalls() *inflightCalls {
	return &inflightCalls{calls: map[string]*ToolCall{}, done: map[string]bool{}}
}

// track registers a call; a call ID is accepted at most once so a result is
// never delivered twice.
func (i *inflightCalls) track(call *ToolCall) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, exists := i.calls[call.ID]; exists {
		return false
	}
	if i.done[call.ID] {
		return false
	}
	i.calls[call.ID] = call
	return true
}

func (i *inflightCalls) finish(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.calls, id)
	i.done[id] = true
}

func (i *inflightCalls) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.calls)
}
