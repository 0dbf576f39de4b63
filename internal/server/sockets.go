// sockets.go

// Copyright (C) 2018  Steve Merrony

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	socketQueueLen = 64
	writeWait      = 5 * time.Second
)

type outMessage struct {
	Source string `json:"source"`
	Data   any    `json:"data"`
}

type socket struct {
	name string
	conn *websocket.Conn
	out  chan outMessage
	once sync.Once
}

// hub fans events out to the connected WebSocket clients.
type hub struct {
	log *slog.Logger

	mu      sync.Mutex
	sockets map[string]*socket
	nextID  uint
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func newHub(log *slog.Logger) *hub {
	return &hub{log: log, sockets: make(map[string]*socket)}
}

// broadcast queues data for every client, slow clients miss messages.
func (h *hub) broadcast(source string, data any) {
	msg := outMessage{Source: source, Data: data}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sk := range h.sockets {
		select {
		case sk.out <- msg:
		default: // so we don't block
			h.log.Debug("websocket client too slow, event dropped", "socket", sk.name)
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sockets)
}

func (h *hub) websocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	sk := &socket{
		name: fmt.Sprintf("websocket%d", h.nextID),
		conn: conn,
		out:  make(chan outMessage, socketQueueLen),
	}
	h.nextID++
	h.sockets[sk.name] = sk
	h.mu.Unlock()
	h.log.Debug("websocket connected", "socket", sk.name, "remote", r.RemoteAddr)

	go h.writeLoop(sk)
	go h.readLoop(sk)
}

func (h *hub) writeLoop(sk *socket) {
	for msg := range sk.out {
		sk.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sk.conn.WriteJSON(msg); err != nil {
			h.log.Debug("websocket write failed, disconnecting", "socket", sk.name, "error", err)
			h.drop(sk)
			return
		}
	}
}

// readLoop only watches for the client going away.
func (h *hub) readLoop(sk *socket) {
	for {
		if _, _, err := sk.conn.ReadMessage(); err != nil {
			h.drop(sk)
			return
		}
	}
}

func (h *hub) drop(sk *socket) {
	sk.once.Do(func() {
		h.mu.Lock()
		delete(h.sockets, sk.name)
		close(sk.out)
		h.mu.Unlock()
		sk.conn.Close()
		h.log.Debug("websocket disconnected", "socket", sk.name)
	})
}

func (h *hub) closeAll() {
	h.mu.Lock()
	all := make([]*socket, 0, len(h.sockets))
	for _, sk := range h.sockets {
		all = append(all, sk)
	}
	h.mu.Unlock()
	for _, sk := range all {
		h.drop(sk)
	}
}
