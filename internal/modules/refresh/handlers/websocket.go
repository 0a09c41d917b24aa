package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/aristath/dashboard/internal/modules/refresh"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
	// Slow clients only need the latest snapshot, older ones are dropped.
	wsBuffer = 16
)

// HandleWebSocket handles GET /api/refresh/ws
// It pushes a snapshot on connect and after every state change. JSON text
// frames by default, MessagePack binary frames with ?format=msgpack.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	binary := r.URL.Query().Get("format") == "msgpack"

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected close")

	// The client sends nothing; CloseRead handles control frames and
	// cancels ctx once the peer goes away.
	ctx := conn.CloseRead(r.Context())

	updates := make(chan refresh.Snapshot, wsBuffer)
	unsubscribe := h.orchestrator.Subscribe(func(snap refresh.Snapshot) {
		select {
		case updates <- snap:
		default:
			h.log.Warn().Msg("WebSocket client too slow, dropping snapshot")
		}
	})
	defer unsubscribe()

	h.log.Debug().Bool("msgpack", binary).Msg("WebSocket client connected")

	initial := h.orchestrator.Snapshot()
	if err := h.writeSnapshot(ctx, conn, initial, binary); err != nil {
		h.log.Debug().Err(err).Msg("WebSocket initial write failed")
		return
	}
	last := initial.UpdatedAt

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case snap := <-updates:
			// Deliveries from concurrent publishes can arrive out of order.
			if snap.UpdatedAt.Before(last) {
				continue
			}
			last = snap.UpdatedAt
			if err := h.writeSnapshot(ctx, conn, snap, binary); err != nil {
				h.log.Debug().Err(err).Msg("WebSocket write failed")
				return
			}
		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("WebSocket ping failed")
				return
			}
		}
	}
}

func (h *Handler) writeSnapshot(ctx context.Context, conn *websocket.Conn, snap refresh.Snapshot, binary bool) error {
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()

	if !binary {
		return wsjson.Write(writeCtx, conn, snap)
	}

	payload, err := msgpack.Marshal(&snap)
	if err != nil {
		return err
	}
	return conn.Write(writeCtx, websocket.MessageBinary, payload)
}
