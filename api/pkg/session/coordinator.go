package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/devmatehq/chatsync/api/pkg/client"
	"github.com/devmatehq/chatsync/api/pkg/feed"
	"github.com/devmatehq/chatsync/api/pkg/pubsub"
	"github.com/devmatehq/chatsync/api/pkg/types"
	"github.com/devmatehq/chatsync/api/pkg/viewport"
)

var (
	ErrClosed       = errors.New("session closed")
	ErrNoActiveRoom = errors.New("no active room")
)

// HistoryLoader is the slice of the API client the coordinator needs.
type HistoryLoader interface {
	GetMessages(ctx context.Context, roomID int64, page, size int) (*types.MessagesPage, error)
}

type Option func(*Coordinator)

func WithAnchor(a *viewport.Anchor) Option {
	return func(c *Coordinator) {
		c.anchor = a
	}
}

func WithPageSize(size int) Option {
	return func(c *Coordinator) {
		c.pageSize = size
	}
}

// WithOnUpdate registers the callback invoked after every feed mutation
// with the store that changed. The callback may run on the transport's read
// goroutine and must not block.
func WithOnUpdate(fn func(*feed.Store)) Option {
	return func(c *Coordinator) {
		c.onUpdate = fn
	}
}

// WithOnAlarm registers the callback invoked for every notification alarm,
// including ones for the active room.
func WithOnAlarm(fn func(*types.NotificationAlarm)) Option {
	return func(c *Coordinator) {
		c.onAlarm = fn
	}
}

// Coordinator owns the per-room session: which room is active, its feed
// store, its topic subscription, and the unread set fed by the user's
// notification topic. Room switches are atomic with respect to in-flight
// history fetches; a response for a room that is no longer active is
// discarded at resolution time.
type Coordinator struct {
	ps       pubsub.PubSub
	history  HistoryLoader
	anchor   *viewport.Anchor
	pageSize int
	userID   int64
	onUpdate func(*feed.Store)
	onAlarm  func(*types.NotificationAlarm)

	mu         sync.Mutex
	activeRoom int64
	store      *feed.Store
	roomSub    pubsub.Subscription
	alarmSub   pubsub.Subscription
	unread     map[int64]time.Time
	closed     bool

	// renderMu serializes every feed mutation together with its paired
	// anchor capture/restore and the onUpdate callback. Live pushes arrive
	// on the transport read goroutine while history results land on caller
	// goroutines; without this lock the anchor's captured scroll state
	// could interleave between a Before and its After.
	renderMu sync.Mutex
}

func NewCoordinator(ps pubsub.PubSub, history HistoryLoader, userID int64, opts ...Option) *Coordinator {
	c := &Coordinator{
		ps:       ps,
		history:  history,
		pageSize: 20,
		userID:   userID,
		unread:   make(map[int64]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.anchor == nil {
		c.anchor = viewport.NewAnchor(noopMetrics{})
	}
	return c
}

// Start subscribes the user notification topic. Room topics are subscribed
// lazily by SwitchRoom.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	sub, err := c.ps.Subscribe(ctx, pubsub.GetUserNotificationTopic(c.userID), func(payload []byte) error {
		var alarm types.NotificationAlarm
		if err := json.Unmarshal(payload, &alarm); err != nil {
			return fmt.Errorf("error unmarshalling notification alarm: %w", err)
		}

		c.mu.Lock()
		if !c.closed && alarm.RoomID != c.activeRoom {
			c.unread[alarm.RoomID] = alarm.CreatedAt
		}
		onAlarm := c.onAlarm
		c.mu.Unlock()

		if onAlarm != nil {
			onAlarm(&alarm)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error subscribing to notifications: %w", err)
	}

	c.mu.Lock()
	c.alarmSub = sub
	c.mu.Unlock()
	return nil
}

// SwitchRoom makes roomID the active room: it drops the previous room's
// subscription and store, subscribes the new room's topic, and seeds a
// fresh store from page 0. Entering a room clears its unread mark.
// Switching again mid-fetch is safe; the superseded fetch result is
// discarded when it resolves.
func (c *Coordinator) SwitchRoom(ctx context.Context, roomID int64) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	prevSub := c.roomSub
	c.roomSub = nil

	store := feed.NewStore(roomID)
	c.activeRoom = roomID
	c.store = store
	delete(c.unread, roomID)
	c.mu.Unlock()

	if prevSub != nil {
		if err := prevSub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Msg("error unsubscribing from previous room")
		}
	}

	// Subscribe before fetching so a failed page 0 never leaves the room
	// without a live feed; pushes that beat the page are folded back by
	// the store.
	sub, err := c.ps.Subscribe(ctx, pubsub.GetRoomTopic(roomID), c.roomHandler(store))
	if err != nil {
		return fmt.Errorf("error subscribing to room %d: %w", roomID, err)
	}

	c.mu.Lock()
	if c.closed || c.store != store {
		c.mu.Unlock()
		if uerr := sub.Unsubscribe(); uerr != nil {
			log.Warn().Err(uerr).Msg("error unsubscribing from superseded room")
		}
		return nil
	}
	c.roomSub = sub
	c.mu.Unlock()

	if store.BeginFetch() {
		defer store.EndFetch()
		return c.fetchInitial(ctx, store)
	}
	return nil
}

// fetchInitial fetches page 0 and applies it, unless the session moved on
// while the request was in flight.
func (c *Coordinator) fetchInitial(ctx context.Context, store *feed.Store) error {
	page, err := c.history.GetMessages(ctx, store.RoomID(), 0, c.pageSize)
	if err != nil {
		if errors.Is(err, client.ErrRoomNotAccessible) {
			store.MarkExhausted()
			return fmt.Errorf("room %d: %w", store.RoomID(), err)
		}
		log.Warn().Err(err).Int64("room_id", store.RoomID()).Msg("error loading initial history")
		return err
	}

	c.mu.Lock()
	stale := c.closed || c.store != store
	c.mu.Unlock()
	if stale {
		log.Debug().Int64("room_id", store.RoomID()).Msg("discarding history page for inactive room")
		return nil
	}

	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	c.anchor.BeforeAppend()
	store.ResetToLatest(page.Messages, page.Pagination)
	c.anchor.AfterAppend()
	c.notify(store)
	return nil
}

// roomHandler returns the topic handler bound to one store; binding by
// store identity rather than room id keeps a late push for a superseded
// session of the same room from mutating the fresh store.
func (c *Coordinator) roomHandler(store *feed.Store) func([]byte) error {
	return func(payload []byte) error {
		var msg types.Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("error unmarshalling message: %w", err)
		}

		c.mu.Lock()
		stale := c.closed || c.store != store
		c.mu.Unlock()
		if stale {
			return nil
		}

		c.renderMu.Lock()
		defer c.renderMu.Unlock()
		c.anchor.BeforeAppend()
		if store.AppendLive(&msg) {
			c.anchor.AfterAppend()
			c.notify(store)
		}
		return nil
	}
}

// LoadOlder fetches the next older page for the active room and splices it
// onto the head, keeping the viewport pinned. Triggers while a fetch is
// already in flight, or once history is exhausted, are dropped silently.
func (c *Coordinator) LoadOlder(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	store := c.store
	c.mu.Unlock()

	if store == nil {
		return ErrNoActiveRoom
	}
	if !store.HasMore() || !store.BeginFetch() {
		return nil
	}
	defer store.EndFetch()

	if !store.Seeded() {
		return c.fetchInitial(ctx, store)
	}

	nextPage := store.PageCursor() + 1
	page, err := c.history.GetMessages(ctx, store.RoomID(), nextPage, c.pageSize)
	if err != nil {
		if errors.Is(err, client.ErrRoomNotAccessible) {
			store.MarkExhausted()
			return fmt.Errorf("room %d: %w", store.RoomID(), err)
		}
		log.Warn().Err(err).Int64("room_id", store.RoomID()).Int("page", nextPage).Msg("error loading older history")
		return err
	}

	c.mu.Lock()
	stale := c.closed || c.store != store
	c.mu.Unlock()
	if stale {
		log.Debug().Int64("room_id", store.RoomID()).Msg("discarding history page for inactive room")
		return nil
	}

	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	c.anchor.BeforePrepend()
	store.PrependOlder(page.Messages, page.Pagination)
	c.anchor.AfterPrepend()
	c.notify(store)
	return nil
}

// Reload refetches page 0 for the active room, jumping the feed back to the
// latest messages. Used after a reconnect, when pushes may have been missed.
func (c *Coordinator) Reload(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	store := c.store
	c.mu.Unlock()

	if store == nil {
		return ErrNoActiveRoom
	}
	if !store.BeginFetch() {
		return nil
	}
	defer store.EndFetch()

	return c.fetchInitial(ctx, store)
}

// Send publishes an outgoing message to the active room's send topic. The
// message comes back on the room topic once the server fans it out; nothing
// is appended locally here.
func (c *Coordinator) Send(ctx context.Context, contentType, text string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	roomID := c.activeRoom
	hasRoom := c.store != nil
	c.mu.Unlock()

	if !hasRoom {
		return ErrNoActiveRoom
	}

	payload, err := json.Marshal(&types.OutgoingMessage{
		ContentType: contentType,
		ContentText: text,
	})
	if err != nil {
		return fmt.Errorf("error marshalling message: %w", err)
	}
	return c.ps.Publish(ctx, pubsub.GetRoomSendTopic(roomID), payload)
}

// ActiveRoom returns the active room id, or zero when no room is active.
func (c *Coordinator) ActiveRoom() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeRoom
}

// Store returns the active room's feed store, or nil.
func (c *Coordinator) Store() *feed.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store
}

func (c *Coordinator) HasUnread(roomID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.unread[roomID]
	return ok
}

// UnreadRooms returns the rooms with unread activity and when the latest
// alarm for each arrived.
func (c *Coordinator) UnreadRooms() map[int64]time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[int64]time.Time, len(c.unread))
	for id, at := range c.unread {
		out[id] = at
	}
	return out
}

// Close tears down both subscriptions. Idempotent.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	roomSub := c.roomSub
	alarmSub := c.alarmSub
	c.roomSub = nil
	c.alarmSub = nil
	c.mu.Unlock()

	if roomSub != nil {
		if err := roomSub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Msg("error unsubscribing from room")
		}
	}
	if alarmSub != nil {
		if err := alarmSub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Msg("error unsubscribing from notifications")
		}
	}
	return nil
}

func (c *Coordinator) notify(store *feed.Store) {
	c.mu.Lock()
	fn := c.onUpdate
	c.mu.Unlock()
	if fn != nil {
		fn(store)
	}
}

type noopMetrics struct{}

func (noopMetrics) ScrollTop() int      { return 0 }
func (noopMetrics) SetScrollTop(int)    {}
func (noopMetrics) ScrollHeight() int   { return 0 }
func (noopMetrics) ViewportHeight() int { return 0 }
