package chatsync

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/devmatehq/chatsync/api/pkg/feed"
)

// feedPrinter renders a feed store incrementally: each message and each day
// divider is printed exactly once, in timeline order. Render is called from
// the transport read goroutine for live pushes and from the reconnect
// watcher after reloads, so the cursor state sits behind a lock.
type feedPrinter struct {
	out io.Writer

	mu          sync.Mutex
	lastPrinted int64
	lastDay     time.Time
}

func newFeedPrinter(out io.Writer) *feedPrinter {
	return &feedPrinter{out: out}
}

func (p *feedPrinter) Render(s *feed.Store) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, entry := range s.Timeline() {
		switch entry.Kind {
		case feed.EntryDivider:
			if entry.Date.After(p.lastDay) {
				fmt.Fprintf(p.out, "---- %s ----\n", entry.Date.Format("2006-01-02"))
				p.lastDay = entry.Date
			}
		case feed.EntryMessage:
			if entry.Message.ID > p.lastPrinted {
				fmt.Fprintf(p.out, "%s  [%d] %s\n", entry.Message.CreatedAt.Format("15:04:05"), entry.Message.SenderID, entry.Message.ContentText)
				p.lastPrinted = entry.Message.ID
			}
		}
	}
}
