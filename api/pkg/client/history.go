package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/devmatehq/chatsync/api/pkg/types"
)

// GetMessages fetches one page of room history. The server orders each page
// newest first; the page handed back is converted to ascending send time,
// which is the order the feed store maintains. The loader itself is
// stateless; the store owns the page cursor.
func (c *ChatClient) GetMessages(ctx context.Context, roomID int64, page, size int) (*types.MessagesPage, error) {
	path := fmt.Sprintf("/rooms/%d/messages?page=%d&size=%d", roomID, page, size)

	var resp types.MessagesPage
	if err := c.makeRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	reverse(resp.Messages)
	return &resp, nil
}

func reverse(msgs []*types.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
