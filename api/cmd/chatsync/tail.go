package chatsync

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/devmatehq/chatsync/api/pkg/client"
	"github.com/devmatehq/chatsync/api/pkg/config"
	"github.com/devmatehq/chatsync/api/pkg/pubsub"
	"github.com/devmatehq/chatsync/api/pkg/session"
	"github.com/devmatehq/chatsync/api/pkg/transport"
	"github.com/devmatehq/chatsync/api/pkg/types"
)

func newTailCmd() *cobra.Command {
	var roomID int64

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow a room's message feed",
		Long:  "Loads the room's recent history, then prints messages live as they arrive. Reconnects and refetches automatically when the link drops.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if roomID == 0 {
				return fmt.Errorf("--room is required")
			}

			cfg, err := config.LoadChatConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runTail(ctx, cfg, roomID)
		},
	}

	cmd.Flags().Int64Var(&roomID, "room", 0, "room id to follow")
	return cmd
}

func runTail(ctx context.Context, cfg config.ChatConfig, roomID int64) error {
	apiClient, err := client.NewClient(cfg.API.Host, cfg.API.Token, client.WithTimeout(cfg.API.RequestTimeout))
	if err != nil {
		return err
	}

	conn := transport.New(transport.Config{
		URL: cfg.Websocket.URL,
		Retry: transport.RetryPolicy{
			Strategy:    transport.RetryStrategy(cfg.Websocket.ReconnectStrategy),
			Interval:    cfg.Websocket.ReconnectInterval,
			MaxInterval: cfg.Websocket.ReconnectMaxInterval,
		},
		PingInterval: cfg.Websocket.PingInterval,
		WriteTimeout: cfg.Websocket.WriteTimeout,
	})
	defer conn.Close()

	if err := conn.Connect(ctx); err != nil {
		return err
	}

	printer := newFeedPrinter(os.Stdout)

	coordinator := session.NewCoordinator(pubsub.NewWebsocket(conn), apiClient, cfg.Feed.UserID,
		session.WithPageSize(cfg.Feed.PageSize),
		session.WithOnUpdate(printer.Render),
		session.WithOnAlarm(func(a *types.NotificationAlarm) {
			log.Info().Int64("room_id", a.RoomID).Str("type", a.Type).Msg("activity in another room")
		}),
	)
	defer coordinator.Close()

	if err := coordinator.Start(ctx); err != nil {
		return err
	}
	if err := coordinator.SwitchRoom(ctx, roomID); err != nil {
		return err
	}

	go watchConnection(ctx, conn, coordinator)

	<-ctx.Done()
	return nil
}

// watchConnection refetches the newest page after every reconnect, since
// pushes sent while the link was down are gone for good.
func watchConnection(ctx context.Context, conn *transport.Conn, coordinator *session.Coordinator) {
	seenFirstConnect := false
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-conn.Events():
			switch ev.Type {
			case types.WsEventConnected:
				if seenFirstConnect {
					log.Info().Msg("reconnected, refreshing feed")
					if err := coordinator.Reload(ctx); err != nil {
						log.Warn().Err(err).Msg("feed refresh failed")
					}
				}
				seenFirstConnect = true
			case types.WsEventDisconnected:
				log.Warn().Msg("connection lost")
			}
		}
	}
}
