// Package transporttest provides an in-process websocket peer speaking the
// same frame protocol as the chat gateway, so transport, pubsub and session
// code can be exercised against a real socket without a backend.
package transporttest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/devmatehq/chatsync/api/pkg/types"
)

type Broker struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]map[string]bool

	subscribed   chan string
	unsubscribed chan string
	sends        chan types.WsFrame
}

func NewBroker() *Broker {
	b := &Broker{
		upgrader:     websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		conns:        make(map[*websocket.Conn]map[string]bool),
		subscribed:   make(chan string, 64),
		unsubscribed: make(chan string, 64),
		sends:        make(chan types.WsFrame, 64),
	}
	b.srv = httptest.NewServer(http.HandlerFunc(b.handle))
	return b
}

// URL returns the ws:// address clients dial.
func (b *Broker) URL() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http")
}

// Subscribed yields a topic each time any client subscribes to it.
func (b *Broker) Subscribed() <-chan string { return b.subscribed }

// Unsubscribed yields a topic each time any client drops it.
func (b *Broker) Unsubscribed() <-chan string { return b.unsubscribed }

// Sends yields every SEND frame received from clients.
func (b *Broker) Sends() <-chan types.WsFrame { return b.sends }

// Push delivers body as a MESSAGE frame to every connection subscribed to
// topic.
func (b *Broker) Push(topic string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(types.WsFrame{
		Type:        types.WsFrameMessage,
		Destination: topic,
		Body:        data,
	})
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for conn, topics := range b.conns {
		if topics[topic] {
			_ = conn.WriteMessage(websocket.TextMessage, payload)
		}
	}
	return nil
}

// PushRaw writes payload verbatim to every connection, subscribed or not.
// Used to exercise malformed-frame handling.
func (b *Broker) PushRaw(payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.conns {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
}

// DropConnections severs every client connection while leaving the server
// up, simulating a network blip that clients should recover from.
func (b *Broker) DropConnections() {
	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.conns))
	for conn := range b.conns {
		conns = append(conns, conn)
	}
	b.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

// ConnectionCount reports the number of live client connections.
func (b *Broker) ConnectionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

func (b *Broker) Close() {
	b.DropConnections()
	b.srv.Close()
}

func (b *Broker) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	b.mu.Lock()
	b.conns[conn] = make(map[string]bool)
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.conns, conn)
		b.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame types.WsFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case types.WsFrameSubscribe:
			b.mu.Lock()
			b.conns[conn][frame.Destination] = true
			b.mu.Unlock()
			b.subscribed <- frame.Destination
		case types.WsFrameUnsubscribe:
			b.mu.Lock()
			delete(b.conns[conn], frame.Destination)
			b.mu.Unlock()
			b.unsubscribed <- frame.Destination
		case types.WsFrameSend:
			b.sends <- frame
		}
	}
}
