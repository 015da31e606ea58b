package httpgin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nammaspot/parkgo/internal/domain"
	"github.com/nammaspot/parkgo/internal/service/selection"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsSendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// BoardSource renders the current slot board for a city.
type BoardSource interface {
	Board(ctx context.Context, city string) (*selection.Selection, error)
}

// SlotsMessage is pushed to every client watching a city.
type SlotsMessage struct {
	Type         string        `json:"type"`
	City         string        `json:"city"`
	Slots        []domain.Slot `json:"slots"`
	PricePerHour float64       `json:"pricePerHour"`
	Timestamp    int64         `json:"timestamp"`
}

type wsClient struct {
	hub  *SlotHub
	conn *websocket.Conn
	send chan []byte
	city string
}

type cityMessage struct {
	city string
	data []byte
}

// SlotHub fans slot board updates out to websocket clients, grouped by
// city.
type SlotHub struct {
	board      BoardSource
	logger     *slog.Logger
	clients    map[string]map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan cityMessage
	done       chan struct{}
	mu         sync.RWMutex
}

func NewSlotHub(board BoardSource, logger *slog.Logger) *SlotHub {
	return &SlotHub{
		board:      board,
		logger:     logger,
		clients:    make(map[string]map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan cityMessage, 64),
		done:       make(chan struct{}),
	}
}

// Run owns the client registry until ctx is done.
func (h *SlotHub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.city] == nil {
				h.clients[client.city] = make(map[*wsClient]bool)
			}
			h.clients[client.city][client] = true
			n := len(h.clients[client.city])
			h.mu.Unlock()
			h.logger.Debug("ws client registered", "city", client.city, "clients", n)

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.mu.RLock()
			targets := make([]*wsClient, 0, len(h.clients[msg.city]))
			for c := range h.clients[msg.city] {
				targets = append(targets, c)
			}
			h.mu.RUnlock()

			for _, c := range targets {
				select {
				case c.send <- msg.data:
				default:
					h.logger.Warn("ws client too slow, dropping", "city", msg.city)
					h.remove(c)
				}
			}
		}
	}
}

func (h *SlotHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[c.city]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.clients, c.city)
	}
}

func (h *SlotHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for city, clients := range h.clients {
		for c := range clients {
			close(c.send)
		}
		delete(h.clients, city)
	}
}

// Watching reports how many clients follow city.
func (h *SlotHub) Watching(city string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[city])
}

// Refresh reloads the board for city and pushes it to its watchers. It is
// the slots-changed subscription handler.
func (h *SlotHub) Refresh(ctx context.Context, city string) {
	if h.Watching(city) == 0 {
		return
	}

	data, err := h.snapshot(ctx, city)
	if err != nil {
		h.logger.Error("slot board refresh failed", "op", "httpgin.SlotHub.Refresh", "city", city, "error", err)
		return
	}

	select {
	case h.broadcast <- cityMessage{city: city, data: data}:
	case <-h.done:
	case <-ctx.Done():
	}
}

func (h *SlotHub) snapshot(ctx context.Context, city string) ([]byte, error) {
	sel, err := h.board.Board(ctx, city)
	if err != nil {
		return nil, err
	}

	return json.Marshal(SlotsMessage{
		Type:         "slots_updated",
		City:         city,
		Slots:        sel.Slots(),
		PricePerHour: sel.Price,
		Timestamp:    time.Now().UnixMilli(),
	})
}

// @Summary  Live slot board for a city
// @Param    city  path  string  true  "City"
// @Success  101
// @Router   /ws/cities/{city}/slots [get]
func handleSlotsWS(h *SlotHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		city := c.Param("city")

		first, err := h.snapshot(c.Request.Context(), city)
		if err != nil {
			respondErr(c, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", "error", err)
			return
		}

		client := &wsClient{
			hub:  h,
			conn: conn,
			send: make(chan []byte, wsSendBuffer),
			city: city,
		}
		client.send <- first

		select {
		case h.register <- client:
		case <-h.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// readPump only watches for the peer going away.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", "city", c.city, "error", err)
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
