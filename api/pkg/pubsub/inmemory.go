package pubsub

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/devmatehq/chatsync/api/pkg/system"
)

// InMemory is a process-local PubSub used by tests and offline development.
// Delivery is synchronous: Publish runs every matching handler before
// returning, which mirrors the arrival-order semantics of the websocket
// transport.
type InMemory struct {
	mu   sync.Mutex
	subs map[string]map[string]func(payload []byte) error
}

func NewInMemory() *InMemory {
	return &InMemory{
		subs: make(map[string]map[string]func(payload []byte) error),
	}
}

func (p *InMemory) Publish(_ context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	handlers := make([]func(payload []byte) error, 0, len(p.subs[topic]))
	for _, handler := range p.subs[topic] {
		handlers = append(handlers, handler)
	}
	p.mu.Unlock()

	for _, handler := range handlers {
		if err := handler(payload); err != nil {
			log.Err(err).Str("topic", topic).Msg("error handling message")
		}
	}
	return nil
}

func (p *InMemory) Subscribe(_ context.Context, topic string, handler func(payload []byte) error) (Subscription, error) {
	id := system.GenerateSubscriptionID()

	p.mu.Lock()
	if p.subs[topic] == nil {
		p.subs[topic] = make(map[string]func(payload []byte) error)
	}
	p.subs[topic][id] = handler
	p.mu.Unlock()

	return &inMemorySubscription{ps: p, topic: topic, id: id}, nil
}

type inMemorySubscription struct {
	ps    *InMemory
	topic string
	id    string
}

func (s *inMemorySubscription) Unsubscribe() error {
	s.ps.mu.Lock()
	defer s.ps.mu.Unlock()
	if peers, ok := s.ps.subs[s.topic]; ok {
		delete(peers, s.id)
		if len(peers) == 0 {
			delete(s.ps.subs, s.topic)
		}
	}
	return nil
}
