package storefront

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/example/moonjewelry/pkg/notify"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	feedWriteTimeout = 5 * time.Second
	feedQueueSize    = 32
)

// Feed pushes order events to connected back-office dashboards.
type Feed struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*feedClient]struct{}
}

// feedClient owns one connection. Only its writer goroutine writes data
// frames; Publish never blocks on the network.
type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewFeed(logger *zap.Logger) *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			// the admin group already enforces the API key and CORS origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*feedClient]struct{}),
	}
}

// ServeWS upgrades the request and keeps the connection registered until the
// client goes away.
func (f *Feed) ServeWS(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.logger.Warn("Feed upgrade failed", zap.Error(err))
		return
	}

	client := &feedClient{conn: conn, send: make(chan []byte, feedQueueSize)}
	f.mu.Lock()
	f.clients[client] = struct{}{}
	f.mu.Unlock()
	f.logger.Debug("Feed client connected", zap.String("remote", conn.RemoteAddr().String()))

	go client.writeLoop()

	defer f.drop(client)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (fc *feedClient) writeLoop() {
	for data := range fc.send {
		_ = fc.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := fc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			// unblocks the read loop in ServeWS, which unregisters the client
			fc.conn.Close()
			return
		}
	}
}

// Publish implements notify.Publisher. A client whose queue is full is
// disconnected.
func (f *Feed) Publish(event notify.FeedEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		f.logger.Error("Failed to encode feed event", zap.Error(err))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for client := range f.clients {
		select {
		case client.send <- data:
		default:
			f.logger.Warn("Feed client too slow, disconnecting",
				zap.String("remote", client.conn.RemoteAddr().String()))
			f.unregister(client)
			client.conn.Close()
		}
	}
}

func (f *Feed) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// unregister must be called with f.mu held.
func (f *Feed) unregister(client *feedClient) {
	if _, ok := f.clients[client]; !ok {
		return
	}
	delete(f.clients, client)
	close(client.send)
}

func (f *Feed) drop(client *feedClient) {
	f.mu.Lock()
	f.unregister(client)
	f.mu.Unlock()
	client.conn.Close()
}

func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for client := range f.clients {
		f.unregister(client)
		_ = client.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		client.conn.Close()
	}
}
