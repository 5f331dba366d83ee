package pubsub

import (
	"context"
	"fmt"
)

type Publisher interface {
	// Publish sends payload to topic, fire and forget.
	Publish(ctx context.Context, topic string, payload []byte) error
}

// PubSub multiplexes logical subscribers over one shared connection. Each
// Subscribe yields its own Subscription; handles on the same topic string
// are independent and cancelling one never affects the others.
type PubSub interface {
	Publisher
	Subscribe(ctx context.Context, topic string, handler func(payload []byte) error) (Subscription, error)
}

type Subscription interface {
	Unsubscribe() error
}

// GetRoomTopic is the per-room message delivery topic.
func GetRoomTopic(roomID int64) string {
	return fmt.Sprintf("/sub/chats/%d", roomID)
}

// GetRoomSendTopic is the destination outgoing messages are published to.
func GetRoomSendTopic(roomID int64) string {
	return fmt.Sprintf("/pub/chats/%d", roomID)
}

// GetUserNotificationTopic is the per-user cross-room alarm topic.
func GetUserNotificationTopic(userID int64) string {
	return fmt.Sprintf("/sub/users/%d/notifications", userID)
}
