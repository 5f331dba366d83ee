package types

import (
	"encoding/json"
	"time"
)

// Message content kinds the feed can render.
const (
	ContentTypeText  = "text"
	ContentTypeImage = "image"
	ContentTypeFile  = "file"
)

// Message is one chat message as delivered by both the history API and the
// room topic. Immutable once admitted to a feed.
type Message struct {
	ID          int64     `json:"messageId"`
	RoomID      int64     `json:"roomId"`
	SenderID    int64     `json:"senderId"`
	ContentType string    `json:"contentType"`
	ContentText string    `json:"contentText"`
	CreatedAt   time.Time `json:"createdAt"`
}

// OutgoingMessage is the payload published to a room's send topic. The
// server assigns the id and timestamp and echoes the full Message back on
// the room topic.
type OutgoingMessage struct {
	ContentType string `json:"contentType"`
	ContentText string `json:"contentText"`
}

type RoomKind string

const (
	RoomKindDirect RoomKind = "direct"
	RoomKindGroup  RoomKind = "group"
)

// Participant is the roster entry used to resolve sender display data.
type Participant struct {
	UserID    int64  `json:"userId"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type Room struct {
	ID           int64         `json:"roomId"`
	Kind         RoomKind      `json:"roomKind"`
	Participants []Participant `json:"participants,omitempty"`
	// Counterpart is set for direct rooms, MemberCount for group rooms.
	Counterpart *Participant `json:"counterpart,omitempty"`
	MemberCount int          `json:"memberCount,omitempty"`
}

type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
}

// HasMore reports whether pages older than CurrentPage remain; the terminal
// page is currentPage == totalPages-1.
func (p Pagination) HasMore() bool {
	return p.CurrentPage < p.TotalPages-1
}

type MessagesPage struct {
	Messages   []*Message `json:"messages"`
	Pagination Pagination `json:"pagination"`
}

// NotificationAlarm rides the per-user notification topic and marks a room
// as having unread activity without carrying the message body.
type NotificationAlarm struct {
	RoomID    int64     `json:"roomId"`
	CreatedAt time.Time `json:"createdAt"`
	Type      string    `json:"type"`
}

type ConnectionState string

const (
	Disconnected ConnectionState = "DISCONNECTED"
	Connecting   ConnectionState = "CONNECTING"
	Connected    ConnectionState = "CONNECTED"
	Reconnecting ConnectionState = "RECONNECTING"
)

type WsFrameType string

const (
	WsFrameSubscribe   WsFrameType = "SUBSCRIBE"
	WsFrameUnsubscribe WsFrameType = "UNSUBSCRIBE"
	WsFrameSend        WsFrameType = "SEND"
	WsFrameMessage     WsFrameType = "MESSAGE"
)

// WsFrame is the JSON envelope exchanged over the chat websocket in both
// directions.
type WsFrame struct {
	Type        WsFrameType     `json:"type"`
	Destination string          `json:"destination,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

type WsEventType string

const (
	WsEventConnected     WsEventType = "CONNECTED"
	WsEventDisconnected  WsEventType = "DISCONNECTED"
	WsEventFrameReceived WsEventType = "FRAME_RECEIVED"
)

// WsEvent is the typed event stream the transport emits so consumers can
// observe the connection lifecycle without touching the socket.
type WsEvent struct {
	Type  WsEventType
	Topic string
	Body  json.RawMessage
	Err   error
}
