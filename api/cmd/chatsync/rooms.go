package chatsync

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/devmatehq/chatsync/api/pkg/client"
	"github.com/devmatehq/chatsync/api/pkg/config"
	"github.com/devmatehq/chatsync/api/pkg/types"
)

func newRoomsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List the rooms you are a member of",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadChatConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			apiClient, err := client.NewClient(cfg.API.Host, cfg.API.Token, client.WithTimeout(cfg.API.RequestTimeout))
			if err != nil {
				return err
			}

			rooms, err := apiClient.ListRooms(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list rooms: %w", err)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Kind", "With", "Members"})
			table.SetAutoWrapText(false)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetCenterSeparator("")
			table.SetColumnSeparator("")
			table.SetRowSeparator("")
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetTablePadding("  ")
			table.SetNoWhiteSpace(true)

			for _, room := range rooms {
				with := ""
				members := ""
				switch room.Kind {
				case types.RoomKindDirect:
					if room.Counterpart != nil {
						with = room.Counterpart.Nickname
					}
				case types.RoomKindGroup:
					members = fmt.Sprintf("%d", room.MemberCount)
				}
				table.Append([]string{
					fmt.Sprintf("%d", room.ID),
					string(room.Kind),
					with,
					members,
				})
			}
			table.Render()
			return nil
		},
	}
}
