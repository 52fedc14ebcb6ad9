package channel

import (
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/keyhole-db/keyhole/types"
)

// Transport delivers opaque typed messages between the caller and the
// worker. The channel only needs posting and per-type registration; how
// messages physically cross is the transport's business.
type Transport interface {
	Post(msg types.Message) error
	OnMessageOfType(msgType types.MessageType, handler func(msg types.Message))
	// LossyBinary reports whether crossing this transport corrupts binary
	// values (the codec flaw the payload encoder compensates for).
	LossyBinary() bool
	Close()
}

// PipeEndpoint is one end of an in-process duplex transport. A lossy pipe
// JSON-frames every message, reproducing the boundary flaw: []byte fields
// come out the far side as bare base64 strings unless the codec tagged them
// first.
type PipeEndpoint struct {
	mu       sync.RWMutex
	peer     *PipeEndpoint
	handlers map[types.MessageType][]func(types.Message)
	lossy    bool
	closed   bool
}

// NewPipe builds a connected endpoint pair.
func NewPipe(lossy bool) (*PipeEndpoint, *PipeEndpoint) {
	a := &PipeEndpoint{handlers: map[types.MessageType][]func(types.Message){}, lossy: lossy}
	b := &PipeEndpoint{handlers: map[types.MessageType][]func(types.Message){}, lossy: lossy}
	a.peer, b.peer = b, a
	return a, b
}

func (e *PipeEndpoint) Post(msg types.Message) error {
	e.mu.RLock()
	closed, peer, lossy := e.closed, e.peer, e.lossy
	e.mu.RUnlock()
	if closed {
		return fmt.Errorf("transport is closed")
	}

	if lossy {
		framed, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to frame message: %w", err)
		}
		msg = types.Message{}
		if err := json.Unmarshal(framed, &msg); err != nil {
			return fmt.Errorf("failed to unframe message: %w", err)
		}
	}

	return peer.dispatch(msg)
}

func (e *PipeEndpoint) dispatch(msg types.Message) error {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return fmt.Errorf("transport is closed")
	}
	handlers := append([]func(types.Message){}, e.handlers[msg.Type]...)
	e.mu.RUnlock()

	for _, handler := range handlers {
		handler(msg)
	}
	return nil
}

func (e *PipeEndpoint) OnMessageOfType(msgType types.MessageType, handler func(types.Message)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[msgType] = append(e.handlers[msgType], handler)
}

func (e *PipeEndpoint) LossyBinary() bool {
	return e.lossy
}

// Close tears down both ends.
func (e *PipeEndpoint) Close() {
	e.mu.Lock()
	e.closed = true
	peer := e.peer
	e.mu.Unlock()

	if peer != nil {
		peer.mu.Lock()
		peer.closed = true
		peer.mu.Unlock()
	}
}
