package chatsync

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmatehq/chatsync/api/pkg/feed"
	"github.com/devmatehq/chatsync/api/pkg/types"
)

// lockedBuffer makes bytes.Buffer safe for the printer's concurrent writes.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func feedMsg(id int64, at time.Time) *types.Message {
	return &types.Message{
		ID:          id,
		RoomID:      1,
		SenderID:    7,
		ContentType: types.ContentTypeText,
		ContentText: fmt.Sprintf("message %d", id),
		CreatedAt:   at,
	}
}

func TestFeedPrinter(t *testing.T) {
	epoch := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("prints each message and divider once", func(t *testing.T) {
		var out lockedBuffer
		printer := newFeedPrinter(&out)

		store := feed.NewStore(1)
		store.ResetToLatest([]*types.Message{
			feedMsg(1, epoch),
			feedMsg(2, epoch.Add(time.Minute)),
		}, types.Pagination{CurrentPage: 0, TotalPages: 1})

		printer.Render(store)
		printer.Render(store)

		store.AppendLive(feedMsg(3, epoch.Add(2*time.Minute)))
		printer.Render(store)

		text := out.String()
		assert.Equal(t, 1, strings.Count(text, "---- 2026-03-14 ----"))
		for id := 1; id <= 3; id++ {
			assert.Equal(t, 1, strings.Count(text, fmt.Sprintf("message %d", id)))
		}
	})

	t.Run("concurrent renders emit each message exactly once", func(t *testing.T) {
		var out lockedBuffer
		printer := newFeedPrinter(&out)

		store := feed.NewStore(1)
		store.ResetToLatest([]*types.Message{feedMsg(1, epoch)}, types.Pagination{CurrentPage: 0, TotalPages: 1})

		// One goroutine appends live pushes in arrival order while another
		// keeps re-rendering, the way the reconnect watcher does.
		const total = 100
		appended := make(chan struct{})
		go func() {
			defer close(appended)
			for i := int64(2); i <= total; i++ {
				store.AppendLive(feedMsg(i, epoch.Add(time.Duration(i)*time.Second)))
				printer.Render(store)
			}
		}()
		for i := 0; i < 200; i++ {
			printer.Render(store)
		}
		<-appended
		printer.Render(store)

		text := out.String()
		require.Equal(t, total, strings.Count(text, "] message "))
		for id := int64(1); id <= total; id++ {
			assert.Equal(t, 1, strings.Count(text, fmt.Sprintf("message %d\n", id)), "message %d", id)
		}
	})
}
