package transport

import (
	"github.com/rs/zerolog/log"

	"github.com/devmatehq/chatsync/api/pkg/system"
	"github.com/devmatehq/chatsync/api/pkg/types"
)

type subscription struct {
	id      string
	topic   string
	handler func(body []byte)
}

// Subscribe registers handler for frames pushed to topic and returns an
// opaque handle immediately. If the link is not currently up the subscribe
// intent is deferred and re-issued on the next CONNECTED transition.
//
// Topic strings may be shared by independent features; every call gets its
// own handle and removing one never affects the others.
func (c *Conn) Subscribe(topic string, handler func(body []byte)) string {
	sub := &subscription{
		id:      system.GenerateSubscriptionID(),
		topic:   topic,
		handler: handler,
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		// Handle to a dead registry; Unsubscribe on it is a no-op.
		return sub.id
	}
	c.subs[sub.id] = sub
	peers := c.byTopic[topic]
	if peers == nil {
		peers = make(map[string]*subscription)
		c.byTopic[topic] = peers
	}
	first := len(peers) == 0
	peers[sub.id] = sub
	connected := c.state == types.Connected
	c.mu.Unlock()

	// The gateway tracks one subscription per topic per connection; the
	// per-handle fan-out lives in this registry.
	if first && connected {
		if err := c.writeFrame(types.WsFrame{Type: types.WsFrameSubscribe, Destination: topic}); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("subscribe frame failed, will re-issue on reconnect")
		}
	}
	return sub.id
}

// Unsubscribe cancels the handle. It is idempotent: unknown or already
// invalidated handles are a no-op, not an error.
func (c *Conn) Unsubscribe(handle string) {
	c.mu.Lock()
	sub, ok := c.subs[handle]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.subs, handle)
	peers := c.byTopic[sub.topic]
	delete(peers, handle)
	last := len(peers) == 0
	if last {
		delete(c.byTopic, sub.topic)
	}
	connected := c.state == types.Connected
	c.mu.Unlock()

	if last && connected {
		if err := c.writeFrame(types.WsFrame{Type: types.WsFrameUnsubscribe, Destination: sub.topic}); err != nil {
			log.Debug().Err(err).Str("topic", sub.topic).Msg("unsubscribe frame failed")
		}
	}
}
