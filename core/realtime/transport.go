package realtime

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// Conn is the bidirectional message channel the engine drives. It is the
// subset of [websocket.Conn] the engine needs, kept as an interface so tests
// can substitute an in-memory transport.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// Frame type aliases so callers need not import gorilla directly.
const (
	TextMessage   = websocket.TextMessage
	BinaryMessage = websocket.BinaryMessage
)

// Dial opens a websocket connection to the realtime endpoint, authenticating
// with a bearer credential.
func Dial(ctx context.Context, endpoint, credential string) (Conn, error) {
	header := http.Header{
		"Authorization": {"Bearer " + credential},
		"OpenAI-Beta":   {"realtime=v1"},
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to realtime endpoint: %w", err)
	}

	return conn, nil
}
