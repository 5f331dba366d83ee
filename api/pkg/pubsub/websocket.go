package pubsub

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/devmatehq/chatsync/api/pkg/transport"
)

// Websocket adapts a transport.Conn to the PubSub interface. All topics ride
// the single shared connection; the transport's registry keeps the
// per-handle fan-out.
type Websocket struct {
	conn *transport.Conn
}

func NewWebsocket(conn *transport.Conn) *Websocket {
	return &Websocket{conn: conn}
}

func (w *Websocket) Publish(_ context.Context, topic string, payload []byte) error {
	return w.conn.Publish(topic, payload)
}

func (w *Websocket) Subscribe(_ context.Context, topic string, handler func(payload []byte) error) (Subscription, error) {
	handle := w.conn.Subscribe(topic, func(body []byte) {
		if err := handler(body); err != nil {
			log.Err(err).Str("topic", topic).Msg("error handling message")
		}
	})
	return &websocketSubscription{conn: w.conn, handle: handle}, nil
}

type websocketSubscription struct {
	conn   *transport.Conn
	handle string
}

// Unsubscribe is idempotent; cancelling an already invalidated handle is a
// no-op.
func (s *websocketSubscription) Unsubscribe() error {
	s.conn.Unsubscribe(s.handle)
	return nil
}
