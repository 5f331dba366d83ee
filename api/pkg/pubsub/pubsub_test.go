package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmatehq/chatsync/api/pkg/transport"
	"github.com/devmatehq/chatsync/api/pkg/transport/transporttest"
	"github.com/devmatehq/chatsync/api/pkg/types"
)

func TestTopics(t *testing.T) {
	assert.Equal(t, "/sub/chats/42", GetRoomTopic(42))
	assert.Equal(t, "/pub/chats/42", GetRoomSendTopic(42))
	assert.Equal(t, "/sub/users/7/notifications", GetUserNotificationTopic(7))
}

func TestInMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to topic subscribers", func(t *testing.T) {
		ps := NewInMemory()

		var got []byte
		sub, err := ps.Subscribe(ctx, GetRoomTopic(1), func(payload []byte) error {
			got = payload
			return nil
		})
		require.NoError(t, err)
		defer sub.Unsubscribe()

		require.NoError(t, ps.Publish(ctx, GetRoomTopic(1), []byte("hello")))
		assert.Equal(t, []byte("hello"), got)
	})

	t.Run("topic isolation", func(t *testing.T) {
		ps := NewInMemory()

		called := false
		sub, err := ps.Subscribe(ctx, GetRoomTopic(1), func([]byte) error {
			called = true
			return nil
		})
		require.NoError(t, err)
		defer sub.Unsubscribe()

		require.NoError(t, ps.Publish(ctx, GetRoomTopic(2), []byte("other room")))
		assert.False(t, called)
	})

	t.Run("handles on one topic are independent", func(t *testing.T) {
		ps := NewInMemory()

		var first, second int
		sub1, err := ps.Subscribe(ctx, GetRoomTopic(1), func([]byte) error {
			first++
			return nil
		})
		require.NoError(t, err)
		sub2, err := ps.Subscribe(ctx, GetRoomTopic(1), func([]byte) error {
			second++
			return nil
		})
		require.NoError(t, err)
		defer sub2.Unsubscribe()

		require.NoError(t, ps.Publish(ctx, GetRoomTopic(1), []byte("a")))
		assert.Equal(t, 1, first)
		assert.Equal(t, 1, second)

		require.NoError(t, sub1.Unsubscribe())
		require.NoError(t, ps.Publish(ctx, GetRoomTopic(1), []byte("b")))
		assert.Equal(t, 1, first, "cancelled handle must not fire")
		assert.Equal(t, 2, second)
	})

	t.Run("unsubscribe is idempotent", func(t *testing.T) {
		ps := NewInMemory()
		sub, err := ps.Subscribe(ctx, GetRoomTopic(1), func([]byte) error { return nil })
		require.NoError(t, err)
		require.NoError(t, sub.Unsubscribe())
		require.NoError(t, sub.Unsubscribe())
	})
}

func TestWebsocket(t *testing.T) {
	broker := transporttest.NewBroker()
	defer broker.Close()

	conn := transport.New(transport.Config{
		URL:   broker.URL(),
		Retry: transport.RetryPolicy{Interval: 20 * time.Millisecond},
	})
	defer conn.Close()

	ctx := context.Background()
	require.NoError(t, conn.Connect(ctx))
	require.Eventually(t, func() bool {
		return conn.State() == types.Connected
	}, 2*time.Second, 5*time.Millisecond)

	ps := NewWebsocket(conn)

	received := make(chan []byte, 8)
	sub, err := ps.Subscribe(ctx, GetRoomTopic(1), func(payload []byte) error {
		received <- payload
		return nil
	})
	require.NoError(t, err)

	select {
	case topic := <-broker.Subscribed():
		assert.Equal(t, GetRoomTopic(1), topic)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscribe frame")
	}

	require.NoError(t, broker.Push(GetRoomTopic(1), map[string]any{"messageId": 1}))
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pushed payload")
	}

	require.NoError(t, ps.Publish(ctx, GetRoomSendTopic(1), []byte(`{"contentType":"text","contentText":"hi"}`)))
	select {
	case frame := <-broker.Sends():
		assert.Equal(t, GetRoomSendTopic(1), frame.Destination)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for send frame")
	}

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())
}
