package feed

import (
	"time"

	"github.com/devmatehq/chatsync/api/pkg/types"
)

type TimelineEntryKind string

const (
	EntryDivider TimelineEntryKind = "divider"
	EntryMessage TimelineEntryKind = "message"
)

// TimelineEntry is one rendered row: a date divider or a message.
type TimelineEntry struct {
	Kind TimelineEntryKind
	// Date is midnight of the calendar day, set on divider entries.
	Date    time.Time
	Message *types.Message
}

// Timeline projects the sequence into rendered rows, inserting a divider
// wherever the calendar date changes between adjacent messages. Pure
// projection; the stored sequence is untouched.
func (s *Store) Timeline() []TimelineEntry {
	msgs := s.Messages()

	entries := make([]TimelineEntry, 0, len(msgs)+1)
	var last time.Time
	for _, m := range msgs {
		day := truncateToDay(m.CreatedAt)
		if last.IsZero() || !day.Equal(last) {
			entries = append(entries, TimelineEntry{Kind: EntryDivider, Date: day})
			last = day
		}
		entries = append(entries, TimelineEntry{Kind: EntryMessage, Message: m})
	}
	return entries
}

func truncateToDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
