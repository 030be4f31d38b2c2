package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"guidance-desk/internal/db"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const wsWriteTimeout = 5 * time.Second

type dashboardClient struct {
	userID uint
	role   string
	// gorilla connections allow one concurrent writer.
	writeMu sync.Mutex
}

// dashboardHub fans dashboard events out to connected staff. Advisers only
// receive events about referrals they created.
type dashboardHub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]*dashboardClient
	logger *zap.Logger
	onSize func(int)
}

func newDashboardHub(logger *zap.Logger) *dashboardHub {
	return &dashboardHub{
		conns:  make(map[*websocket.Conn]*dashboardClient),
		logger: logger,
	}
}

func (h *dashboardHub) Add(conn *websocket.Conn, user *db.User) {
	h.mu.Lock()
	h.conns[conn] = &dashboardClient{userID: user.ID, role: user.Role}
	size := len(h.conns)
	h.mu.Unlock()
	h.reportSize(size)
}

func (h *dashboardHub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, existed := h.conns[conn]
	delete(h.conns, conn)
	size := len(h.conns)
	h.mu.Unlock()
	_ = conn.Close()
	if existed {
		h.reportSize(size)
	}
}

func (h *dashboardHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *dashboardHub) reportSize(size int) {
	if h.onSize != nil {
		h.onSize(size)
	}
}

func (h *dashboardHub) Send(conn *websocket.Conn, payload any) error {
	h.mu.Lock()
	client := h.conns[conn]
	h.mu.Unlock()
	if client == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	client.writeMu.Lock()
	defer client.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *dashboardHub) Broadcast(event DashboardEvent) {
	h.mu.Lock()
	targets := make([]*websocket.Conn, 0, len(h.conns))
	for conn, client := range h.conns {
		if client.role == db.RoleAdviser && (event.CreatedBy == 0 || event.CreatedBy != client.userID) {
			continue
		}
		targets = append(targets, conn)
	}
	h.mu.Unlock()
	for _, conn := range targets {
		if err := h.Send(conn, event); err != nil {
			h.logger.Debug("dashboard ws send failed", zap.Error(err))
			h.Remove(conn)
		}
	}
}

func (s *Server) handleDashboardWebsocket(c *gin.Context) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	user := currentUser(c)
	s.logger.Info("dashboard ws connected", zap.Uint("user_id", user.ID), zap.String("remote", c.Request.RemoteAddr))
	s.dashboard.Add(conn, user)
	_ = s.dashboard.Send(conn, DashboardEvent{Type: "hello", At: s.now().UTC()})
	go s.readDashboardWS(conn)
}

func (s *Server) readDashboardWS(conn *websocket.Conn) {
	defer s.dashboard.Remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.logger.Debug("dashboard ws disconnected", zap.Error(err))
			return
		}
	}
}
