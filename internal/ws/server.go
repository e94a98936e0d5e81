package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingPeriod = 30 * time.Second
	pongWait   = 60 * time.Second
	writeWait  = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers on other origins are allowed; access control happens at the
	// data layer, the feed only carries change notifications.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server exposes the hub over its own HTTP listener, separate from the API
// server.
type Server struct {
	hub *Hub
	srv *http.Server
}

func NewServer(hub *Hub, addr string) *Server {
	mux := http.NewServeMux()
	s := &Server{
		hub: hub,
	}
	mux.HandleFunc("/ws/updates", s.handleUpdates)
	s.srv = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe()
	defer sub.Cancel()

	done := make(chan struct{})
	go s.reader(conn, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// reader drains the connection so pongs and close frames are processed,
// and signals when the client goes away.
func (s *Server) reader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

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
