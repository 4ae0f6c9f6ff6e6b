package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastReachesClient(t *testing.T) {
	hub := NewHub(logrus.New())
	upgrader := websocket.Upgrader{}
	registered := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn, "staff")
		close(registered)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				hub.Unregister(conn)
				return
			}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("client was not registered")
	}
	assert.Equal(t, 1, hub.ClientCount())

	hub.Broadcast(EventOrderUpdated, map[string]int{"id": 7})

	var msg struct {
		Event string         `json:"event"`
		Data  map[string]int `json:"data"`
	}
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, client.ReadJSON(&msg))
	assert.Equal(t, EventOrderUpdated, msg.Event)
	assert.Equal(t, 7, msg.Data["id"])
}
