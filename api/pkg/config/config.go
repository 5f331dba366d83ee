package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type ChatConfig struct {
	API       API
	Websocket Websocket
	Feed      Feed
}

type API struct {
	Host           string        `envconfig:"CHATSYNC_API_HOST" default:"http://localhost:8080"`
	Token          string        `envconfig:"CHATSYNC_API_TOKEN"`
	RequestTimeout time.Duration `envconfig:"CHATSYNC_API_REQUEST_TIMEOUT" default:"10s"`
}

type Websocket struct {
	URL string `envconfig:"CHATSYNC_WS_URL" default:"ws://localhost:8080/ws"`

	ReconnectStrategy    string        `envconfig:"CHATSYNC_RECONNECT_STRATEGY" default:"fixed" desc:"One of fixed or exponential"`
	ReconnectInterval    time.Duration `envconfig:"CHATSYNC_RECONNECT_INTERVAL" default:"5s"`
	ReconnectMaxInterval time.Duration `envconfig:"CHATSYNC_RECONNECT_MAX_INTERVAL" default:"0s" desc:"Delay cap for the exponential strategy, 0 means uncapped"`

	PingInterval time.Duration `envconfig:"CHATSYNC_PING_INTERVAL" default:"10s"`
	WriteTimeout time.Duration `envconfig:"CHATSYNC_WRITE_TIMEOUT" default:"5s"`
}

type Feed struct {
	UserID       int64 `envconfig:"CHATSYNC_USER_ID"`
	PageSize     int   `envconfig:"CHATSYNC_PAGE_SIZE" default:"20"`
	NearBottomPx int   `envconfig:"CHATSYNC_NEAR_BOTTOM_PX" default:"80"`
}

func LoadChatConfig() (ChatConfig, error) {
	var cfg ChatConfig
	err := envconfig.Process("", &cfg)
	if err != nil {
		return ChatConfig{}, err
	}
	return cfg, nil
}
