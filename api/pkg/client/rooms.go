package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/devmatehq/chatsync/api/pkg/types"
)

// GetRoom resolves room metadata: kind, roster, counterpart for direct
// rooms or member count for group rooms.
func (c *ChatClient) GetRoom(ctx context.Context, roomID int64) (*types.Room, error) {
	var resp types.Room
	if err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("/rooms/%d", roomID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type listRoomsResponse struct {
	Rooms []*types.Room `json:"rooms"`
}

func (c *ChatClient) ListRooms(ctx context.Context) ([]*types.Room, error) {
	var resp listRoomsResponse
	if err := c.makeRequest(ctx, http.MethodGet, "/rooms", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}
