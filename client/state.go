package client

import (
	"fmt"
	"sync"
	"time"
)

// ConnectionState is the lifecycle state of a client's session.
type ConnectionState int

const (
	// DISCONNECTED: no session is open.
	DISCONNECTED ConnectionState = iota
	// CONNECTING: the dial and handshake are in progress.
	CONNECTING
	// CONNECTED: commands may be sent.
	CONNECTED
	// DISCONNECTING: the session is being closed.
	DISCONNECTING
)

// String returns the string representation of the connection state.
func (cs ConnectionState) String() string {
	switch cs {
	case DISCONNECTED:
		return "DISCONNECTED"
	case CONNECTING:
		return "CONNECTING"
	case CONNECTED:
		return "CONNECTED"
	case DISCONNECTING:
		return "DISCONNECTING"
	default:
		return "UNKNOWN"
	}
}

// StateTransition describes one state change.
//
// Metadata keys used by the client:
//   - reason: "user_initiated" | "error"
//   - address: the server host:port
type StateTransition struct {
	From      ConnectionState
	To        ConnectionState
	Timestamp time.Time

	// Error is set when a failure caused the transition.
	Error error

	// Duration is how long the previous state was held.
	Duration time.Duration

	Metadata map[string]interface{}
}

// StateChangeHandler is called after every transition.
type StateChangeHandler func(transition StateTransition)

// StateManager guards the client lifecycle:
//
//	DISCONNECTED → CONNECTING → CONNECTED → DISCONNECTING → DISCONNECTED
//
// with CONNECTING → DISCONNECTED for a failed open.
type StateManager struct {
	current  ConnectionState
	last     StateTransition
	handlers []StateChangeHandler
	mu       sync.RWMutex
}

// NewStateManager creates a new state manager in DISCONNECTED state.
func NewStateManager() *StateManager {
	now := time.Now()
	return &StateManager{
		current: DISCONNECTED,
		last:    StateTransition{From: DISCONNECTED, To: DISCONNECTED, Timestamp: now},
	}
}

// TransitionTo moves to newState, or returns an error if the move is not
// part of the lifecycle. Handlers run after the lock is released.
func (sm *StateManager) TransitionTo(newState ConnectionState, err error, metadata map[string]interface{}) error {
	sm.mu.Lock()
	if !legalTransition(sm.current, newState) {
		from := sm.current
		sm.mu.Unlock()
		return fmt.Errorf("illegal state transition: %s → %s", from, newState)
	}

	now := time.Now()
	transition := StateTransition{
		From:      sm.current,
		To:        newState,
		Timestamp: now,
		Error:     err,
		Duration:  now.Sub(sm.last.Timestamp),
		Metadata:  metadata,
	}
	sm.current = newState
	sm.last = transition

	handlers := make([]StateChangeHandler, len(sm.handlers))
	copy(handlers, sm.handlers)
	sm.mu.Unlock()

	for _, handler := range handlers {
		handler(transition)
	}
	return nil
}

func legalTransition(from, to ConnectionState) bool {
	switch from {
	case DISCONNECTED:
		return to == CONNECTING
	case CONNECTING:
		return to == CONNECTED || to == DISCONNECTED
	case CONNECTED:
		return to == DISCONNECTING
	case DISCONNECTING:
		return to == DISCONNECTED
	default:
		return false
	}
}

// OnStateChange registers a handler to be called on state transitions.
func (sm *StateManager) OnStateChange(handler StateChangeHandler) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.handlers = append(sm.handlers, handler)
}

// GetState returns the current connection state.
func (sm *StateManager) GetState() ConnectionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// GetLastTransition returns the most recent transition.
func (sm *StateManager) GetLastTransition() StateTransition {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.last
}
