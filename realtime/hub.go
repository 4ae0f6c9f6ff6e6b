package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event types
const (
	EventOrderCreated      = "order_created"
	EventOrderUpdated      = "order_updated"
	EventOrderDeleted      = "order_deleted"
	EventStaffNotification = "staff_notification"
	EventReportCompleted   = "report_completed"
)

const writeWait = 5 * time.Second

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub holds every connected board client (staff, admin, driver) keyed by connection.
type Hub struct {
	clients map[*websocket.Conn]string // conn -> role
	mutex   sync.Mutex
	log     *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]string),
		log:     log,
	}
}

func (h *Hub) Register(conn *websocket.Conn, role string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = role
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Broadcast sends the event to every client. Clients that fail a write are dropped.
func (h *Hub) Broadcast(event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		h.log.WithError(err).WithField("event", event).Error("failed to marshal realtime message")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.log.WithFields(logrus.Fields{"event": event, "clients": len(h.clients)}).Debug("broadcasting")

	for conn, role := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.WithError(err).WithField("role", role).Warn("dropping realtime client")
			delete(h.clients, conn)
			conn.Close()
		}
	}
}
