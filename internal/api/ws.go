package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Venom120/Youtube-downloader/internal/task"
)

// Inbound message kinds.
const (
	msgSubscribe      = "subscribe"
	msgUnsubscribe    = "unsubscribe"
	msgResumeDownload = "resume_download"
	msgCancelDownload = "cancel_download"
)

// Outbound message kinds.
const (
	msgDownloadProgress  = "download_progress"
	msgDownloadComplete  = "download_complete"
	msgDownloadError     = "download_error"
	msgDownloadCancelled = "download_cancelled"
	msgDownloadResumed   = "download_resumed"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 45 * time.Second
	sendBufferSize = 64

	// closeInvalidAppID is the close code clients expect on a failed
	// handshake secret.
	closeInvalidAppID = 4003
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The app id query parameter is the access control, not the Origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wireMessage is the {type, data} frame carried both ways over the socket.
type wireMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type inboundMessage struct {
	Type string `json:"type"`
	Data struct {
		DownloadID string `json:"downloadId"`
	} `json:"data"`
}

// wsClient is one WebSocket subscriber. Notify translates task events into
// wire messages and hands them to the write pump without blocking; a full or
// closed send buffer marks the connection dead so the hub prunes it.
type wsClient struct {
	conn      *websocket.Conn
	send      chan wireMessage
	closeOnce sync.Once
	closed    chan struct{}
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn:   conn,
		send:   make(chan wireMessage, sendBufferSize),
		closed: make(chan struct{}),
	}
}

func (c *wsClient) Notify(ev task.Event) error {
	return c.enqueue(eventToWire(ev))
}

func (c *wsClient) enqueue(msg wireMessage) error {
	select {
	case <-c.closed:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		// Best-effort delivery: a subscriber that cannot keep up is dropped
		// rather than allowed to stall co-subscribers.
		c.close()
		return websocket.ErrCloseSent
	}
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func eventToWire(ev task.Event) wireMessage {
	id := ev.TaskID()
	switch e := ev.(type) {
	case task.Progress:
		return wireMessage{Type: msgDownloadProgress, Data: gin.H{
			"downloadId":      id,
			"progress":        e.Percent,
			"downloadedBytes": e.Downloaded,
			"totalBytes":      e.Total,
		}}
	case task.Complete:
		return wireMessage{Type: msgDownloadComplete, Data: gin.H{
			"downloadId": id,
			"filePath":   e.Path,
		}}
	case task.Failed:
		return wireMessage{Type: msgDownloadError, Data: gin.H{
			"downloadId": id,
			"error":      e.Message,
			"kind":       string(e.Kind),
		}}
	case task.Canceled:
		return wireMessage{Type: msgDownloadCancelled, Data: gin.H{
			"downloadId": id,
		}}
	default:
		return wireMessage{Type: msgDownloadProgress, Data: gin.H{"downloadId": id}}
	}
}

// HandleWebSocket upgrades the connection, validates the app id handshake and
// serves the subscribe/control message loop until the client disconnects.
func (a *API) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	if c.Query("app_id") != a.appID {
		msg := websocket.FormatCloseMessage(closeInvalidAppID, "invalid app id")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
		return
	}
	client := newWSClient(conn)
	log.Info().Str("client_ip", c.ClientIP()).Msg("websocket client connected")

	go a.writePump(client)
	a.readPump(client)
}

func (a *API) readPump(client *wsClient) {
	defer func() {
		a.events.UnsubscribeAll(client)
		client.close()
		client.conn.Close()
		log.Info().Msg("websocket client disconnected")
	}()
	client.conn.SetReadLimit(4096)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg inboundMessage
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
		id := msg.Data.DownloadID
		if id == "" {
			continue
		}
		switch msg.Type {
		case msgSubscribe:
			a.events.Subscribe(client, id)
		case msgUnsubscribe:
			a.events.Unsubscribe(client, id)
		case msgResumeDownload:
			if a.manager.Resume(id) {
				_ = client.enqueue(wireMessage{Type: msgDownloadResumed, Data: gin.H{"downloadId": id}})
			}
		case msgCancelDownload:
			// The download_cancelled broadcast comes from the worker once it
			// has actually unwound.
			a.manager.Cancel(id)
		default:
			log.Debug().Str("type", msg.Type).Msg("unknown websocket message type")
		}
	}
}

func (a *API) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case msg := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteJSON(msg); err != nil {
				client.close()
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.close()
				return
			}
		case <-client.closed:
			return
		}
	}
}
