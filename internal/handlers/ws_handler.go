package handlers

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"presence-hub-api/internal/dispatch"
	"presence-hub-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxFrame   = 4096
)

// wsClient implements realtime.Client by wrapping a websocket connection.
// Sends arrive from many goroutines (other connections' event loops), so
// writes are serialized with a mutex.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) Send(message []byte) bool {
	if c == nil || c.conn == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		return false
	}
	return true
}

func (c *wsClient) Close() {
	if c != nil && c.conn != nil {
		_ = c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is already handled at Gin level; allow upgrade from any origin here
		return true
	},
}

// WebSocketHandler upgrades the connection, registers it in the hub under
// a fresh connection ID, and feeds every frame to the dispatcher. Identity
// is bound later by the identify event, not here.
func WebSocketHandler(hub *realtime.Hub, dispatcher *dispatch.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("websocket upgrade error:", err)
			return
		}

		connectionID := uuid.NewString()
		client := &wsClient{conn: conn}
		hub.Register(connectionID, client)
		dispatcher.HandleOpen(connectionID)

		// Heartbeat: send periodic pings; close on error
		pingTicker := time.NewTicker(pingPeriod)
		done := make(chan struct{})
		go func() {
			for {
				select {
				case <-done:
					return
				case <-pingTicker.C:
					if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
						// ping failed; reader loop will exit on next error
						return
					}
				}
			}
		}()
		defer func() {
			close(done)
			pingTicker.Stop()
			hub.Unregister(connectionID)
			// The request context may already be done once the peer is
			// gone; the offline status update still has to run.
			dispatcher.HandleClose(context.Background(), connectionID)
			client.Close()
		}()

		conn.SetReadLimit(maxFrame)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				// Normal close or error; exit loop
				return
			}
			dispatcher.HandleFrame(c.Request.Context(), connectionID, raw)
		}
	}
}
