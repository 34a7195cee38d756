// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/timecoding/portal/annotation"
	"github.com/timecoding/portal/middleware"
	"github.com/timecoding/portal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Collection names pushed over the wire. Each message carries a complete
// replacement snapshot of the named collection, never a patch.
const (
	CollectionTexts           = "texts"
	CollectionUsers           = "users"
	CollectionClassifications = "classifications"
)

// Message is one snapshot event: the full current contents of a collection.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type notice struct {
	collection string
	batchID    string // set only for texts
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the CORS layer is the origin policy here
	},
}

// Client is one subscribed websocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	user models.UserProfile
}

// Hub fans full-collection snapshots out to subscribed clients. Coders
// receive the texts of their assigned batch; admins additionally receive
// the user and classification collections. Consumers never poll: every
// successful write notifies the hub, which re-queries and broadcasts.
type Hub struct {
	db         *sql.DB
	sessions   *annotation.Manager
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	notices    chan notice
}

// NewHub creates a hub over the given database. The annotation manager
// receives the same text snapshots the clients do, so a live session's item
// list is replaced the moment its batch changes.
func NewHub(db *sql.DB, sessions *annotation.Manager) *Hub {
	return &Hub{
		db:         db,
		sessions:   sessions,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		notices:    make(chan notice, 64),
	}
}

// Notify tells the hub that a collection changed. batchID scopes texts
// notifications; pass "" for the other collections. Never blocks the
// caller: under backpressure the notice is dropped with a warning, and the
// next write will resync subscribers.
func (h *Hub) Notify(collection, batchID string) {
	select {
	case h.notices <- notice{collection: collection, batchID: batchID}:
	default:
		slog.Warn("snapshot notice dropped", "collection", collection, "batch_id", batchID)
	}
}

// Run drives the hub loop. Call once in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.sendInitialSnapshots(client)
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case n := <-h.notices:
			h.handleNotice(n)
		}
	}
}

func (h *Hub) handleNotice(n notice) {
	switch n.collection {
	case CollectionTexts:
		items, err := h.queryTexts(n.batchID)
		if err != nil {
			slog.Error("failed to query texts snapshot", "error", err, "batch_id", n.batchID)
			return
		}
		// Live annotation sessions see the same replacement snapshot
		// as the subscribed clients.
		h.sessions.ReplaceBatch(n.batchID, items)
		payload := marshalMessage(Message{Type: CollectionTexts, Data: items})
		for client := range h.clients {
			if client.user.AssignedBatchID == n.batchID || client.user.Role == models.RoleAdmin {
				h.push(client, payload)
			}
		}
	case CollectionUsers:
		users, err := h.queryUsers()
		if err != nil {
			slog.Error("failed to query users snapshot", "error", err)
			return
		}
		h.broadcastToAdmins(marshalMessage(Message{Type: CollectionUsers, Data: users}))
	case CollectionClassifications:
		classifications, err := h.queryClassifications()
		if err != nil {
			slog.Error("failed to query classifications snapshot", "error", err)
			return
		}
		h.broadcastToAdmins(marshalMessage(Message{Type: CollectionClassifications, Data: classifications}))
	}
}

func (h *Hub) sendInitialSnapshots(client *Client) {
	if client.user.Role == models.RoleCoder && client.user.AssignedBatchID != "" {
		items, err := h.queryTexts(client.user.AssignedBatchID)
		if err != nil {
			slog.Error("failed to query initial texts", "error", err, "user_id", client.user.ID)
		} else {
			h.push(client, marshalMessage(Message{Type: CollectionTexts, Data: items}))
		}
	}

	if client.user.Role == models.RoleAdmin {
		if users, err := h.queryUsers(); err == nil {
			h.push(client, marshalMessage(Message{Type: CollectionUsers, Data: users}))
		} else {
			slog.Error("failed to query initial users", "error", err)
		}
		if classifications, err := h.queryClassifications(); err == nil {
			h.push(client, marshalMessage(Message{Type: CollectionClassifications, Data: classifications}))
		} else {
			slog.Error("failed to query initial classifications", "error", err)
		}
	}
}

func (h *Hub) broadcastToAdmins(payload []byte) {
	for client := range h.clients {
		if client.user.Role == models.RoleAdmin {
			h.push(client, payload)
		}
	}
}

// push hands a payload to a client, dropping the client if its send buffer
// is full.
func (h *Hub) push(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) queryTexts(batchID string) ([]models.TextItem, error) {
	rows, err := h.db.Query(`
		SELECT id, body, batch_id FROM text_item
		WHERE batch_id = $1
		ORDER BY created_at, id
	`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.TextItem{}
	for rows.Next() {
		var item models.TextItem
		if err := rows.Scan(&item.ID, &item.Text, &item.BatchID); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (h *Hub) queryUsers() ([]models.UserProfile, error) {
	rows, err := h.db.Query(`
		SELECT id, username, role, assigned_batch_id, created_at, created_by, last_login
		FROM user_profile
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.UserProfile{}
	for rows.Next() {
		var user models.UserProfile
		var batchID, createdBy sql.NullString
		var lastLogin sql.NullTime
		if err := rows.Scan(&user.ID, &user.Username, &user.Role, &batchID, &user.CreatedAt, &createdBy, &lastLogin); err != nil {
			return nil, err
		}
		if batchID.Valid {
			user.AssignedBatchID = batchID.String
		}
		if createdBy.Valid {
			user.CreatedBy = createdBy.String
		}
		if lastLogin.Valid {
			t := lastLogin.Time
			user.LastLogin = &t
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (h *Hub) queryClassifications() ([]models.Classification, error) {
	rows, err := h.db.Query(`
		SELECT id, text_id, user_id, category, recorded_at, flagged, flag_notes
		FROM classification
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	classifications := []models.Classification{}
	for rows.Next() {
		var c models.Classification
		var notes sql.NullString
		if err := rows.Scan(&c.ID, &c.TextID, &c.UserID, &c.Category, &c.Timestamp, &c.Flagged, &notes); err != nil {
			return nil, err
		}
		if notes.Valid {
			s := notes.String
			c.FlagNotes = &s
		}
		classifications = append(classifications, c)
	}
	return classifications, rows.Err()
}

func marshalMessage(msg Message) []byte {
	data, _ := json.Marshal(msg)
	return data
}

// ServeWS upgrades an authenticated request to a websocket subscription.
// The identity must already be attached by the middleware gate.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Sign in required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade connection", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		user: user,
	}
	h.register <- client

	go client.readPump()
	go client.writePump()
}

// readPump discards inbound frames; subscriptions are implied by role. Its
// job is pong handling and teardown when the peer goes away.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("unexpected websocket close", "error", err, "user_id", c.user.ID)
			}
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
