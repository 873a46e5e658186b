package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dharsanguruparan/omnigo/internal/logger"
	"github.com/dharsanguruparan/omnigo/internal/workflow"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// How often the session is checked for changes.
	pollInterval = 200 * time.Millisecond

	// Clients only send control frames.
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleEvents streams the caller's workflow snapshot over a websocket. A
// snapshot is sent on connect and again whenever the workflow changes, which
// is how clients follow upload progress without polling.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	wf := s.session(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go readPump(conn, closed)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	// The duplicate warning expires on its own without a transition, so it
	// is compared alongside the update time.
	var (
		sent        bool
		lastUpdate  time.Time
		lastWarning string
	)
	send := func() bool {
		snap := wf.Snapshot()
		if sent && snap.UpdatedAt.Equal(lastUpdate) && snap.Warning == lastWarning {
			return true
		}
		sent, lastUpdate, lastWarning = true, snap.UpdatedAt, snap.Warning
		return writeSnapshot(conn, snap) == nil
	}
	if !send() {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if !send() {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap workflow.Snapshot) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snap)
}

// readPump drains the connection so control frames are processed, and closes
// done when the peer goes away.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
