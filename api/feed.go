package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reconlab/scene.report/internal/monitoring"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10
)

// RunEvent is one run-state transition pushed to websocket subscribers.
type RunEvent struct {
	RunID string `json:"runId"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
	At    int64  `json:"at"`
}

// Feed broadcasts run-state transitions to connected viewer clients. Each
// connection gets its own write mutex so broadcasts and pings never
// interleave frames.
type Feed struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*websocket.Conn]*sync.Mutex
}

func NewFeed() *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Broadcast sends the event to every connected client. Slow or dead clients
// are dropped.
func (f *Feed) Broadcast(ev RunEvent) {
	if ev.At == 0 {
		ev.At = time.Now().UnixMilli()
	}

	f.mu.Lock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(f.clients))
	for c, m := range f.clients {
		conns[c] = m
	}
	f.mu.Unlock()

	for conn, wmu := range conns {
		wmu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteJSON(ev)
		wmu.Unlock()
		if err != nil {
			f.drop(conn)
		}
	}
}

// HandleWS upgrades the request and keeps the connection registered until the
// client goes away.
func (f *Feed) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("websocket upgrade failed: %v", err)
		return
	}

	wmu := &sync.Mutex{}
	f.mu.Lock()
	f.clients[conn] = wmu
	f.mu.Unlock()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Ping loop keeps intermediaries from closing idle connections.
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				wmu.Lock()
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				wmu.Unlock()
				if err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	// Reader loop: clients do not send data, but reading is required to
	// process pongs and detect closes.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
	f.drop(conn)
}

func (f *Feed) drop(conn *websocket.Conn) {
	f.mu.Lock()
	_, ok := f.clients[conn]
	delete(f.clients, conn)
	f.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// ClientCount reports the number of connected subscribers.
func (f *Feed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}
