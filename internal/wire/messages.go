// Package wire defines the WebSocket protocol for fetching dashboard data.
//
// A client opens one socket per dashboard view and sends a "fetch" per line;
// each answer echoes the request id so lines can be rendered as they arrive.
package wire

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Message types.
const (
	TypeFetch   = "fetch"
	TypePing    = "ping"
	TypeSession = "session"
	TypePayload = "payload"
	TypeError   = "error"
	TypePong    = "pong"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "fetch", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// FetchData is the payload for "fetch" messages.
type FetchData struct {
	FilterID  uuid.UUID      `json:"filter_id"`
	LineID    *uuid.UUID     `json:"line_id,omitempty"`
	Overrides map[string]any `json:"overrides,omitempty"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "session", "payload", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// ErrorData carries a protocol error. Render failures are sent as payloads.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionData identifies the connection.
type SessionData struct {
	SessionID string `json:"session_id"`
}
