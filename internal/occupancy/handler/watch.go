package handler

import (
	"net/http"
	"time"

	"campushub/pkg/logger"
	"campushub/pkg/notify"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// changedMessage is the only frame the watch endpoint ever sends. It
// carries no state; clients re-fetch the occupancy document.
var changedMessage = []byte(`{"event":"occupancy-changed"}`)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// WatchHandler bridges the in-process change hub to WebSocket clients
// so every open view learns about mutations made in any other view.
type WatchHandler struct {
	hub      *notify.Hub
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWatchHandler(hub *notify.Hub, log *logger.Logger) *WatchHandler {
	return &WatchHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			// Views are served from other origins; access control happens
			// at the API, not the notification channel.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *WatchHandler) Watch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	changes, cancel := h.hub.Subscribe()
	defer cancel()
	defer conn.Close()

	h.log.Debug("Watch client connected", "remote_addr", r.RemoteAddr)

	// Reader goroutine: discard client frames, detect disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, changedMessage); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *WatchHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/occupancy/watch", h.Watch)
}
