package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/lingua/domain/entities"
	"github.com/satriahrh/lingua/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer.
	maxMessageSize = 512 * 1024

	// Size of binary frames carrying synthesized audio.
	audioChunkSize = 32 * 1024
)

var errUploadTooLarge = errors.New("audio upload exceeds the size limit")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// TranslationExecutor runs one translation invocation inside its own audio scope
type TranslationExecutor interface {
	Execute(ctx context.Context, req usecase.TranslationRequest, consume func(entities.OperationResult) error) error
}

// HubConfig bounds the work a single connection may request
type HubConfig struct {
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

// Hub maintains the set of active clients.
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	executor  TranslationExecutor
	validator *MessageValidator
	config    HubConfig

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(executor TranslationExecutor, config HubConfig, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		executor:   executor,
		validator:  NewMessageValidator(),
		config:     config,
		logger:     logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done, closing every
// remaining client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("clientID", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.closeSend()
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("clientID", client.id))

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				client.closeSend()
			}
			h.mu.Unlock()
			return
		}
	}
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// upload collects binary frames between translate_start and translate_end
type upload struct {
	request *ClientMessage
	buffer  bytes.Buffer
	err     error
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	id     string
	logger *zap.Logger

	// Cancelled when the connection goes away so in-flight pipelines stop.
	ctx    context.Context
	cancel context.CancelFunc

	// Closed once the client stops accepting outbound messages. send itself
	// is never closed.
	closed    chan struct{}
	closeOnce sync.Once

	mutex   sync.Mutex
	pending *upload
	busy    bool
}

// HandleWebSocket handles websocket requests from the peer.
func HandleWebSocket(hub *Hub, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := newClient(hub, conn, logger)

	select {
	case hub.register <- client:
	case <-hub.done:
		client.cancel()
		conn.Close()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

func newClient(hub *Hub, conn *websocket.Conn, logger *zap.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan WriteData, 256),
		id:     id,
		logger: logger.With(zap.String("clientID", id)),
		ctx:    ctx,
		cancel: cancel,
		closed: make(chan struct{}),
	}
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.processBinaryAudioChunk(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeSend()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage processes control frames from the client
func (c *Client) processMessage(message []byte) {
	msg, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Rejected client message", zap.Error(err))
		c.sendJSON(CreateErrorMessage(err.Error(), ""))
		return
	}

	switch msg.Type {
	case MessageTypeTranslateText:
		c.handleTranslateText(msg)
	case MessageTypeTranslateStart:
		c.handleTranslateStart(msg)
	case MessageTypeTranslateEnd:
		c.handleTranslateEnd()
	case MessageTypePing:
		c.sendJSON(StatusMessage{Type: MessageTypePong})
	}
}

// processBinaryAudioChunk appends binary audio to the pending upload
func (c *Client) processBinaryAudioChunk(data []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.pending == nil {
		c.logger.Warn("Received binary audio chunk but no upload is open", zap.Int("size", len(data)))
		c.sendJSON(CreateErrorMessage("no upload in progress, send translate_start first", ""))
		return
	}
	if c.pending.err != nil {
		return
	}

	limit := c.hub.config.MaxUploadBytes
	if limit > 0 && int64(c.pending.buffer.Len()+len(data)) > limit {
		c.pending.err = errUploadTooLarge
		c.pending.buffer.Reset()
		return
	}
	c.pending.buffer.Write(data)
}

func (c *Client) handleTranslateText(msg *ClientMessage) {
	if !c.begin() {
		return
	}
	go c.translate(usecase.TranslationRequest{
		Mode:           msg.Mode(),
		Text:           *msg.Text,
		SourceLanguage: msg.SourceLanguage,
		TargetLanguage: msg.Language,
	})
}

func (c *Client) handleTranslateStart(msg *ClientMessage) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.busy || c.pending != nil {
		c.sendJSON(CreateErrorMessage("translation already in progress", ""))
		return
	}
	c.pending = &upload{request: msg}
	c.sendJSON(StatusMessage{Type: MessageTypeUploadReady})

	c.logger.Info("Audio upload started",
		zap.String("option", msg.Option),
		zap.String("filename", msg.Filename))
}

func (c *Client) handleTranslateEnd() {
	c.mutex.Lock()
	pending := c.pending
	c.pending = nil
	if pending != nil && pending.err == nil {
		c.busy = true
	}
	c.mutex.Unlock()

	switch {
	case pending == nil:
		c.sendJSON(CreateErrorMessage("no upload in progress, send translate_start first", ""))
		return
	case pending.err != nil:
		c.sendJSON(CreateErrorMessage(pending.err.Error(), ""))
		return
	case pending.buffer.Len() == 0:
		c.finish()
		c.sendJSON(CreateErrorMessage("Missing audio file", ""))
		return
	}

	filename := pending.request.Filename
	if filename == "" {
		filename = "audio.webm"
	}

	go c.translate(usecase.TranslationRequest{
		Mode:           pending.request.Mode(),
		Audio:          &pending.buffer,
		AudioFilename:  filename,
		SourceLanguage: pending.request.SourceLanguage,
		TargetLanguage: pending.request.Language,
	})
}

// begin marks the client busy, refusing overlapping translations
func (c *Client) begin() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.busy || c.pending != nil {
		c.sendJSON(CreateErrorMessage("translation already in progress", ""))
		return false
	}
	c.busy = true
	return true
}

func (c *Client) finish() {
	c.mutex.Lock()
	c.busy = false
	c.mutex.Unlock()
}

// translate runs one pipeline and streams its outcome back to the client
func (c *Client) translate(req usecase.TranslationRequest) {
	defer c.finish()

	ctx := c.ctx
	if timeout := c.hub.config.RequestTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := c.hub.executor.Execute(ctx, req, c.deliver)
	if err != nil {
		c.logger.Error("Translation failed",
			zap.String("mode", string(req.Mode)),
			zap.Error(err))
		c.sendJSON(CreateErrorMessage(err.Error(), ""))
	}
}

// deliver sends the result while its audio is still in scope
func (c *Client) deliver(result entities.OperationResult) error {
	if failure := result.Failure(); failure != nil {
		c.sendJSON(CreateErrorMessage(failure.Message, failure.Stage))
		return nil
	}

	if !result.HasAudio() {
		c.sendJSON(TranslationMessage{Type: MessageTypeTranslation, TranslatedText: result.Text()})
		return nil
	}

	audio := result.Audio()
	file, err := audio.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	size, _ := audio.Size()
	c.sendJSON(SpeakingMessage{Type: MessageTypeSpeakingStart, ContentType: audio.ContentType, Bytes: size})

	buffer := make([]byte, audioChunkSize)
	for {
		n, err := file.Read(buffer)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])
			if !c.enqueue(WriteData{Type: websocket.BinaryMessage, Payload: chunk}) {
				return errors.New("client went away while streaming audio")
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	c.sendJSON(SpeakingMessage{Type: MessageTypeSpeakingEnd})
	return nil
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}
	c.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
}

// enqueue hands data to writePump, giving up after writeWait or once the
// client is closed
func (c *Client) enqueue(data WriteData) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	timer := time.NewTimer(writeWait)
	defer timer.Stop()
	select {
	case c.send <- data:
		return true
	case <-c.closed:
		return false
	case <-timer.C:
		c.logger.Warn("Dropping message for slow client")
		return false
	}
}

// closeSend stops outbound delivery. Safe to call more than once and never
// blocks.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.closed) })
}
