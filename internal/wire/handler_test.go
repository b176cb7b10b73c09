package wire

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/dashboard/internal/board"
	"github.com/matthewbaird/dashboard/internal/options"
	"github.com/matthewbaird/dashboard/internal/render"
	"github.com/matthewbaird/dashboard/internal/schema"
	"github.com/matthewbaird/dashboard/internal/store"
	"github.com/matthewbaird/dashboard/internal/types"
)

// reply is a decoded ServerMessage.
type reply struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func dial(t *testing.T) (*websocket.Conn, uuid.UUID, context.Context) {
	t.Helper()
	reg := schema.NewRegistry()
	reg.Register(schema.NewCollection("stock.move", "Move", "stock_move",
		&schema.FieldMeta{Name: "product", Label: "Product", Type: schema.FieldChar, Stored: true},
		&schema.FieldMeta{Name: "qty", Label: "Quantity", Type: schema.FieldFloat, Stored: true},
	))
	st := store.NewMemoryStore(reg)
	st.Insert("stock.move",
		types.Record{"id": int64(1), "product": "bolt", "qty": 12.0},
		types.Record{"id": int64(2), "product": "nut", "qty": 30.0},
		types.Record{"id": int64(3), "product": "bolt", "qty": 3.0},
	)
	repo := board.NewMemoryRepository()
	filterID := repo.PutFilter(types.Filter{
		Collection: "stock.move",
		Context:    "{'pivot_row_groupby': 'product', 'pivot_measures': ['qty']}",
	}).ID
	svc := render.NewService(repo, reg, st, options.NewResolver(nil, options.Defaults{}, nil), nil, render.Config{})

	srv := httptest.NewServer(NewHandler(svc, nil))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn, filterID, ctx
}

func roundTrip(t *testing.T, ctx context.Context, conn *websocket.Conn, msg any) reply {
	t.Helper()
	require.NoError(t, wsjson.Write(ctx, conn, msg))
	var r reply
	require.NoError(t, wsjson.Read(ctx, conn, &r))
	return r
}

func TestHandler_Session(t *testing.T) {
	conn, _, ctx := dial(t)

	var r reply
	require.NoError(t, wsjson.Read(ctx, conn, &r))
	assert.Equal(t, TypeSession, r.Type)
	var data SessionData
	require.NoError(t, json.Unmarshal(r.Data, &data))
	_, err := uuid.Parse(data.SessionID)
	assert.NoError(t, err)

	r = roundTrip(t, ctx, conn, ClientMessage{Type: TypePing, ID: "p1"})
	assert.Equal(t, TypePong, r.Type)
	assert.Equal(t, "p1", r.RequestID)
}

func TestHandler_Fetch(t *testing.T) {
	conn, filterID, ctx := dial(t)
	var hello reply
	require.NoError(t, wsjson.Read(ctx, conn, &hello))

	r := roundTrip(t, ctx, conn, map[string]any{
		"type": TypeFetch,
		"id":   "line-1",
		"data": map[string]any{"filter_id": filterID, "overrides": map[string]any{"pivot_sort_order": "desc"}},
	})
	assert.Equal(t, TypePayload, r.Type)
	assert.Equal(t, "line-1", r.RequestID)
	assert.JSONEq(t, `{
		"type": "pivot",
		"data": [{"row": "nut", "value": 30}, {"row": "bolt", "value": 15}],
		"measure_label": "Quantity",
		"row_label": "Product",
		"total": 45,
		"show_data_title": true
	}`, string(r.Data))

	// Unknown filters render as an error payload, not a protocol error.
	r = roundTrip(t, ctx, conn, ClientMessage{Type: TypeFetch, ID: "line-2", Data: json.RawMessage(`{"filter_id": "` + uuid.NewString() + `"}`)})
	assert.Equal(t, TypePayload, r.Type)
	assert.JSONEq(t, `{"error": "filter not found"}`, string(r.Data))
}

func TestHandler_ProtocolErrors(t *testing.T) {
	conn, _, ctx := dial(t)
	var hello reply
	require.NoError(t, wsjson.Read(ctx, conn, &hello))

	tests := []struct {
		msg  ClientMessage
		code string
	}{
		{ClientMessage{Type: TypeFetch, ID: "a", Data: json.RawMessage(`[1]`)}, "invalid_data"},
		{ClientMessage{Type: TypeFetch, ID: "b", Data: json.RawMessage(`{}`)}, "missing_filter"},
		{ClientMessage{Type: "execute", ID: "c"}, "unknown_type"},
	}
	for _, tt := range tests {
		r := roundTrip(t, ctx, conn, tt.msg)
		assert.Equal(t, TypeError, r.Type)
		assert.Equal(t, tt.msg.ID, r.RequestID)
		var data ErrorData
		require.NoError(t, json.Unmarshal(r.Data, &data))
		assert.Equal(t, tt.code, data.Code)
	}
}
