// Package websocket pushes rendered chat updates to browsers and forwards
// whitelisted browser frames to the message bus.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/tafep-voice/internal/pubsub"
)

const (
	sendBuffer   = 256
	writeTimeout = 10 * time.Second
)

// ErrClosed is returned when sending after the bridge stopped.
var ErrClosed = errors.New("websocket: bridge closed")

// Client is one browser connection. A conversation may have several (tabs).
type Client struct {
	ConversationID string
	conn           *websocket.Conn
	send           chan []byte
	bridge         *Bridge
}

type incomingMessage struct {
	conversationID string
	frame          incomingFrame
}

type directMessage struct {
	conversationID string
	payload        []byte
}

// Bridge owns every browser connection. A single router goroutine mutates
// the client map; readers use the RWMutex.
type Bridge struct {
	publisher pubsub.Publisher
	whitelist *Whitelist

	clients map[string][]*Client
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	direct     chan directMessage
	incoming   chan incomingMessage
	done       chan struct{}
}

func NewBridge(pub pubsub.Publisher, wl *Whitelist) *Bridge {
	if wl == nil {
		wl = DefaultWhitelist()
	}
	return &Bridge{
		publisher:  pub,
		whitelist:  wl,
		clients:    make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
		direct:     make(chan directMessage),
		incoming:   make(chan incomingMessage, sendBuffer),
		done:       make(chan struct{}),
	}
}

// Run routes messages until ctx ends. All clients are disconnected on exit.
func (b *Bridge) Run(ctx context.Context) {
	slog.Info("WebSocket bridge started")
	defer func() {
		b.mu.Lock()
		for id, clients := range b.clients {
			for _, c := range clients {
				close(c.send)
			}
			delete(b.clients, id)
		}
		b.mu.Unlock()
		close(b.done)
		slog.Info("WebSocket bridge stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-b.register:
			b.mu.Lock()
			b.clients[c.ConversationID] = append(b.clients[c.ConversationID], c)
			b.mu.Unlock()
			slog.Info("Client registered", "conversation_id", c.ConversationID)

		case c := <-b.unregister:
			b.remove(c)

		case payload := <-b.broadcast:
			b.mu.RLock()
			for _, clients := range b.clients {
				for _, c := range clients {
					c.trySend(payload)
				}
			}
			b.mu.RUnlock()

		case m := <-b.direct:
			b.mu.RLock()
			for _, c := range b.clients[m.conversationID] {
				c.trySend(m.payload)
			}
			b.mu.RUnlock()

		case m := <-b.incoming:
			b.forward(ctx, m)
		}
	}
}

func (b *Bridge) remove(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	clients := b.clients[c.ConversationID]
	for i, existing := range clients {
		if existing == c {
			b.clients[c.ConversationID] = append(clients[:i], clients[i+1:]...)
			close(c.send)
			break
		}
	}
	if len(b.clients[c.ConversationID]) == 0 {
		delete(b.clients, c.ConversationID)
	}
	slog.Info("Client unregistered", "conversation_id", c.ConversationID)
}

func (c *Client) trySend(payload []byte) {
	select {
	case c.send <- payload:
	default:
		slog.Warn("Client send channel full, dropping message", "conversation_id", c.ConversationID)
	}
}

func (b *Bridge) forward(ctx context.Context, m incomingMessage) {
	if m.frame.Action == ActionPing {
		return
	}
	err := pubsub.Publish(ctx, b.publisher, ClientMessageEvent, m.conversationID, ClientMessage{
		Action:     m.frame.Action,
		Text:       m.frame.Text,
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Error("Failed to publish client message", "conversation_id", m.conversationID, "error", err)
	}
}

// ClientCount reports the open connections for a conversation.
func (b *Bridge) ClientCount(conversationID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[conversationID])
}

// Handler upgrades the request. identify returns the conversation the
// connection belongs to.
func (b *Bridge) Handler(identify func(echo.Context) string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := identify(c)
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "missing conversation session")
		}

		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			slog.Error("Failed to upgrade connection to WebSocket", "error", err)
			return err
		}

		client := &Client{
			ConversationID: id,
			conn:           conn,
			send:           make(chan []byte, sendBuffer),
			bridge:         b,
		}
		select {
		case b.register <- client:
		case <-b.done:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return nil
		}

		go client.writePump()
		go client.readPump()

		go func() {
			err := pubsub.Publish(context.Background(), b.publisher, ConnectedEvent, id, Connected{
				ConversationID: id,
				ConnectedAt:    time.Now().UTC(),
			})
			if err != nil {
				slog.Error("Failed to publish websocket connect event", "error", err)
			}
		}()
		return nil
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.bridge.unregister <- c:
		case <-c.bridge.done:
		}
		c.conn.Close(websocket.StatusNormalClosure, "client disconnected")
	}()

	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				slog.Info("WebSocket closed by client", "conversation_id", c.ConversationID)
			} else if !errors.Is(err, io.EOF) {
				slog.Debug("WebSocket read ended", "conversation_id", c.ConversationID, "error", err)
			}
			return
		}

		var f incomingFrame
		if err := json.Unmarshal(data, &f); err != nil {
			slog.Warn("Ignoring malformed websocket frame", "conversation_id", c.ConversationID, "error", err)
			continue
		}
		if !c.bridge.whitelist.IsAllowed(f.Action) {
			slog.Warn("Ignoring websocket action that is not whitelisted", "conversation_id", c.ConversationID, "action", f.Action)
			continue
		}
		select {
		case c.bridge.incoming <- incomingMessage{conversationID: c.ConversationID, frame: f}:
		case <-c.bridge.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close(websocket.StatusNormalClosure, "server-side cleanup")

	for payload := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			slog.Error("WebSocket write error", "conversation_id", c.ConversationID, "error", err)
			return
		}
	}
}

// Broadcast sends f to every connected browser.
func (b *Bridge) Broadcast(f *Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	select {
	case b.broadcast <- payload:
		return nil
	case <-b.done:
		return ErrClosed
	}
}

// Send delivers f to every browser of one conversation.
func (b *Bridge) Send(conversationID string, f *Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	select {
	case b.direct <- directMessage{conversationID: conversationID, payload: payload}:
		return nil
	case <-b.done:
		return ErrClosed
	}
}
