// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/SpencerGraffunder/NuclearDash/pkg/dash"
	"github.com/gorilla/websocket"
)

const (
	relayClientBuffer = 4
	relayWriteTimeout = 2 * time.Second
)

// relaySlot is one slot as a browser sees it.
type relaySlot struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Text   string `json:"text"`
	Alert  bool   `json:"alert"`
	Active bool   `json:"active"`
	Valid  bool   `json:"valid"`
	Stale  bool   `json:"stale"`
}

type relayMessage struct {
	UptimeMs  uint64      `json:"uptime_ms"`
	Beep      bool        `json:"beep"`
	FrameRate float64     `json:"frame_rate"`
	Slots     []relaySlot `json:"slots"`
}

func newRelayMessage(snap dash.Snapshot) relayMessage {
	msg := relayMessage{
		UptimeMs:  snap.UptimeMs,
		Beep:      snap.Beep,
		FrameRate: snap.Stats.FrameRate,
		Slots:     make([]relaySlot, 0, len(snap.Slots)),
	}
	for _, s := range snap.Slots {
		msg.Slots = append(msg.Slots, relaySlot{
			Index:  s.Index,
			Name:   s.Name,
			Unit:   s.UnitLabel,
			Text:   s.Text,
			Alert:  s.Alert,
			Active: s.Active,
			Valid:  s.Valid,
			Stale:  s.Stale,
		})
	}
	return msg
}

type relayClient struct {
	conn *websocket.Conn
	send chan *websocket.PreparedMessage
}

// relay serves the latest snapshot to websocket clients. A client that falls
// more than a few messages behind is disconnected.
type relay struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.Mutex
	clients map[*relayClient]struct{}
	server  *http.Server
}

func newRelay(logger *log.Logger) *relay {
	return &relay{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  256,
			WriteBufferSize: 4096,
			// Served to dashboards on the local network.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*relayClient]struct{}),
	}
}

func (r *relay) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}

// Start listens on addr and serves in the background.
func (r *relay) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("relay listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", r)
	r.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := r.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logf("relay: %v", err)
		}
	}()
	r.logf("relay: serving ws://%s/ws", ln.Addr())
	return nil
}

// ServeHTTP upgrades the request and registers the client.
func (r *relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	c := &relayClient{conn: conn, send: make(chan *websocket.PreparedMessage, relayClientBuffer)}

	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
	r.logf("relay: client %s connected", conn.RemoteAddr())

	go r.writeLoop(c)
	go r.readLoop(c)
}

// readLoop discards client messages and notices when the client goes away.
func (r *relay) readLoop(c *relayClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			r.drop(c)
			return
		}
	}
}

func (r *relay) writeLoop(c *relayClient) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(relayWriteTimeout))
		if err := c.conn.WritePreparedMessage(msg); err != nil {
			r.drop(c)
			return
		}
	}
	c.conn.Close()
}

// drop unregisters c once; its write loop then closes the connection.
func (r *relay) drop(c *relayClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; !ok {
		return
	}
	delete(r.clients, c)
	close(c.send)
	r.logf("relay: client %s disconnected", c.conn.RemoteAddr())
}

// Broadcast encodes snap once and queues it for every client.
func (r *relay) Broadcast(snap dash.Snapshot) {
	r.mu.Lock()
	n := len(r.clients)
	r.mu.Unlock()
	if n == 0 {
		return
	}

	data, err := json.Marshal(newRelayMessage(snap))
	if err != nil {
		r.logf("relay: encode: %v", err)
		return
	}
	msg, err := websocket.NewPreparedMessage(websocket.TextMessage, data)
	if err != nil {
		r.logf("relay: prepare: %v", err)
		return
	}

	r.mu.Lock()
	var slow []*relayClient
	for c := range r.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	r.mu.Unlock()

	for _, c := range slow {
		r.drop(c)
	}
}

// Clients returns the number of connected clients.
func (r *relay) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close stops the server and disconnects every client.
func (r *relay) Close() error {
	var err error
	if r.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		err = r.server.Shutdown(ctx)
	}

	r.mu.Lock()
	clients := make([]*relayClient, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.Unlock()
	for _, c := range clients {
		r.drop(c)
	}
	return err
}
