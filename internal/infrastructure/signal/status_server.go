package signal

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"vigilcam/internal/core/domain"
	"vigilcam/internal/core/ports"
	"vigilcam/pkg/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// StatusMessage is the wire envelope pushed to subscribed viewer clients.
type StatusMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MediaAttachedPayload announces that playable media is available.
type MediaAttachedPayload struct {
	Transport   domain.TransportKind `json:"transport"`
	PlaybackURL string               `json:"playback_url"`
}

// StatusServer pushes supervisor output to viewer clients over WebSocket. It
// implements the status sink port: every status transition, media attachment
// and hide-controls signal is fanned out to all connected clients.
type StatusServer struct {
	mu      sync.RWMutex
	conns   map[string]*websocket.Conn
	last    *domain.StatusSnapshot
	writeMu sync.Mutex

	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	logger *zap.SugaredLogger
}

// NewStatusServer creates a status push server.
func NewStatusServer(logger *zap.SugaredLogger) *StatusServer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &StatusServer{
		conns:        make(map[string]*websocket.Conn),
		pingInterval: 30 * time.Second,
		readTimeout:  60 * time.Second,
		writeTimeout: 10 * time.Second,
		logger:       logger,
	}
}

// HandleWebSocket upgrades the request and keeps the client subscribed until
// it disconnects. The latest known status is replayed immediately so a fresh
// client never waits for the next transition.
func (s *StatusServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	clientID := utils.GenerateSessionID()

	s.mu.Lock()
	s.conns[clientID] = conn
	last := s.last
	s.mu.Unlock()

	s.logger.Infow("status client connected", "client_id", clientID)
	defer func() {
		s.mu.Lock()
		delete(s.conns, clientID)
		s.mu.Unlock()
		s.logger.Infow("status client disconnected", "client_id", clientID)
	}()

	if last != nil {
		s.send(conn, "status", last)
	}

	conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		return nil
	})

	pingTicker := time.NewTicker(s.pingInterval)
	defer pingTicker.Stop()

	errorChan := make(chan error, 1)
	go func() {
		for {
			// Clients only subscribe; inbound frames are drained for control
			// flow and otherwise ignored.
			if _, _, err := conn.ReadMessage(); err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
	}()

	for {
		select {
		case <-pingTicker.C:
			if err := s.ping(conn); err != nil {
				return
			}
		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warnw("status client read error", "client_id", clientID, "error", err)
			}
			return
		}
	}
}

// OnStatus implements the status sink port.
func (s *StatusServer) OnStatus(snapshot domain.StatusSnapshot) {
	s.mu.Lock()
	s.last = &snapshot
	s.mu.Unlock()

	s.broadcast("status", snapshot)
}

// OnMediaAttached implements the status sink port.
func (s *StatusServer) OnMediaAttached(media ports.MediaHandle) {
	s.broadcast("media", MediaAttachedPayload{
		Transport:   media.Transport,
		PlaybackURL: media.PlaybackURL,
	})
}

// OnControlsAutoHide implements the status sink port.
func (s *StatusServer) OnControlsAutoHide() {
	s.broadcast("controls_auto_hide", nil)
}

// ClientCount returns the number of subscribed clients.
func (s *StatusServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

func (s *StatusServer) broadcast(msgType string, payload interface{}) {
	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for _, conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.RUnlock()

	for _, conn := range conns {
		s.send(conn, msgType, payload)
	}
}

func (s *StatusServer) ping(conn *websocket.Conn) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *StatusServer) send(conn *websocket.Conn, msgType string, payload interface{}) {
	msg := StatusMessage{Type: msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			s.logger.Errorw("failed to marshal status payload", "type", msgType, "error", err)
			return
		}
		msg.Payload = data
	}

	// Serialize writes: gorilla connections allow one concurrent writer.
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Debugw("failed to push status message", "type", msgType, "error", err)
	}
}
