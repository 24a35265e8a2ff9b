package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/factorlab/internal/lab"
	"github.com/wonny/factorlab/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	clientBuffer   = 16
	maxMessageSize = 512
)

// Stream pushes evaluation summaries to websocket subscribers. The scheduler
// broadcasts after each run; slow clients are dropped rather than allowed to
// block the hub.
type Stream struct {
	mu       sync.Mutex
	clients  map[*streamClient]struct{}
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

type streamClient struct {
	conn *websocket.Conn
	send chan []lab.Summary
}

// NewStream creates an evaluation stream hub.
func NewStream(log *logger.Logger) *Stream {
	return &Stream{
		clients: make(map[*streamClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: log.Component("stream"),
	}
}

// Serve upgrades the connection and subscribes it.
// GET /ws/evaluations
func (s *Stream) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := &streamClient{
		conn: conn,
		send: make(chan []lab.Summary, clientBuffer),
	}

	s.mu.Lock()
	s.clients[client] = struct{}{}
	count := len(s.clients)
	s.mu.Unlock()

	s.logger.WithField("clients", count).Debug("Websocket client connected")

	go s.writePump(client)
	go s.readPump(client)
}

// Broadcast sends summaries to every subscriber.
func (s *Stream) Broadcast(summaries []lab.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		select {
		case client.send <- summaries:
		default:
			// Slow client, disconnect it.
			delete(s.clients, client)
			close(client.send)
		}
	}
}

// Clients returns the current subscriber count.
func (s *Stream) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Stream) remove(client *streamClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
	}
}

// readPump drains client messages. Subscribers send nothing meaningful;
// reading is needed to process control frames and notice disconnects.
func (s *Stream) readPump(client *streamClient) {
	defer func() {
		s.remove(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump pushes summaries and pings to one client.
func (s *Stream) writePump(client *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case summaries, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(summaries); err != nil {
				s.remove(client)
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.remove(client)
				return
			}
		}
	}
}
