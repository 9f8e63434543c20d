// internal/service/inventory/interfaces/feed.go
package interfaces

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/service/inventory/application"
)

// OpsFeed streams shortfall and dead-letter events to connected operator
// dashboards over websocket. Delivery is best effort; a slow or broken
// subscriber is dropped, never buffered without bound.
type OpsFeed struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewOpsFeed() *OpsFeed {
	return &OpsFeed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Operator tooling connects from anywhere inside the mesh.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the connection and keeps it registered until the
// peer goes away.
func (f *OpsFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Msg("Feed upgrade failed")
		return
	}

	f.mu.Lock()
	f.conns[conn] = struct{}{}
	f.mu.Unlock()

	// Drain (and discard) client frames so pings and closes are seen.
	go func() {
		defer f.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Notify implements application.OpsNotifier.
func (f *OpsFeed) Notify(event application.OpsEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(f.conns, conn)
		}
	}
}

// Close disconnects all subscribers.
func (f *OpsFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		conn.Close()
		delete(f.conns, conn)
	}
}

func (f *OpsFeed) drop(conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn.Close()
	delete(f.conns, conn)
}
