package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type RealtimeController struct {
	Hub *realtime.Hub
}

func NewRealtimeController(hub *realtime.Hub) *RealtimeController {
	return &RealtimeController{Hub: hub}
}

// Board -> WebSocket endpoint for the order board and driver apps
func (rc *RealtimeController) Board(c *gin.Context) {
	role := c.GetString("role")
	switch role {
	case models.RoleAdmin, models.RoleStaff, models.RoleDriver:
	case "":
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	default:
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	rc.Hub.Register(ws, role)

	// Clients only listen; reading detects the disconnect.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	rc.Hub.Unregister(ws)
}
