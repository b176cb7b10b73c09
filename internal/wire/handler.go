package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matthewbaird/dashboard/internal/render"
)

// Handler manages WebSocket connections for dashboard fetches.
type Handler struct {
	render *render.Service
	logger *zap.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(svc *render.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{render: svc, logger: logger.Named("wire")}
}

// ServeHTTP upgrades to WebSocket and runs the message loop. Fetches are
// answered in the order they arrive.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	session := uuid.NewString()
	log := h.logger.With(zap.String("session_id", session))
	h.send(ctx, conn, ServerMessage{Type: TypeSession, Data: SessionData{SessionID: session}})

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				log.Debug("connection closed", zap.Stringer("status", status))
			}
			return
		}

		switch msg.Type {
		case TypeFetch:
			h.handleFetch(ctx, conn, msg)
		case TypePing:
			h.send(ctx, conn, ServerMessage{Type: TypePong, RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *Handler) handleFetch(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	var data FetchData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid fetch data")
		return
	}
	if data.FilterID == uuid.Nil {
		h.sendError(ctx, conn, msg.ID, "missing_filter", "filter_id is required")
		return
	}

	p := h.render.Render(ctx, render.Request{
		FilterID:  data.FilterID,
		LineID:    data.LineID,
		Overrides: data.Overrides,
	})
	h.send(ctx, conn, ServerMessage{Type: TypePayload, RequestID: msg.ID, Data: p})
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.logger.Debug("write error", zap.Error(err))
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      TypeError,
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}
