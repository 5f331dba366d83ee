package feed

import (
	"sync"

	"github.com/devmatehq/chatsync/api/pkg/types"
)

// Store merges the two delivery paths for one room's messages: pages
// fetched from the history API and live pushes from the room topic. It
// keeps a single sequence ascending by send time, dedupes by message id
// regardless of which path a message arrived on, and owns the history page
// cursor.
//
// A Store is built for exactly one room and thrown away on room switch; it
// is never reset in place, so state cannot leak between rooms.
type Store struct {
	mu sync.Mutex

	roomID   int64
	sequence []*types.Message
	seen     map[int64]struct{}

	pageCursor int
	hasMore    bool
	seeded     bool
	fetching   bool
}

func NewStore(roomID int64) *Store {
	return &Store{
		roomID:  roomID,
		seen:    make(map[int64]struct{}),
		hasMore: true,
	}
}

func (s *Store) RoomID() int64 {
	return s.roomID
}

// AppendLive admits a pushed message at the tail. Duplicates are dropped
// and reported as false. Pushes are trusted to arrive in send-time order;
// the sequence is never re-sorted, so a transport that delivers out of
// order will surface out of order here too.
func (s *Store) AppendLive(m *types.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[m.ID]; ok {
		return false
	}
	s.seen[m.ID] = struct{}{}
	s.sequence = append(s.sequence, m)
	return true
}

// ResetToLatest replaces the sequence with the newest history page, the
// "jump to latest" that happens whenever page 0 is (re)fetched. Live pushes
// already admitted that are at least as new as the fetched page's tail are
// folded back on instead of dropped. msgs must be ascending. An empty page
// marks the feed seeded and exhausted without touching the sequence.
func (s *Store) ResetToLatest(msgs []*types.Message, p types.Pagination) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seeded = true
	if len(msgs) == 0 {
		s.hasMore = false
		return
	}

	seen := make(map[int64]struct{}, len(msgs))
	sequence := make([]*types.Message, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		sequence = append(sequence, m)
	}

	newest := sequence[len(sequence)-1].CreatedAt
	for _, m := range s.sequence {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		if m.CreatedAt.Before(newest) {
			continue
		}
		seen[m.ID] = struct{}{}
		sequence = append(sequence, m)
	}

	s.sequence = sequence
	s.seen = seen
	s.pageCursor = p.CurrentPage
	s.hasMore = p.HasMore()
}

// PrependOlder splices an older page (ascending order) onto the head and
// advances the cursor. Only valid once the previous page has been merged;
// callers gate concurrent fetches via BeginFetch. An empty page only
// clears hasMore.
func (s *Store) PrependOlder(msgs []*types.Message, p types.Pagination) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(msgs) == 0 {
		s.hasMore = false
		return
	}

	fresh := make([]*types.Message, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := s.seen[m.ID]; ok {
			continue
		}
		s.seen[m.ID] = struct{}{}
		fresh = append(fresh, m)
	}

	s.sequence = append(fresh, s.sequence...)
	s.pageCursor = p.CurrentPage
	s.hasMore = p.HasMore()
}

// Messages returns a copy of the merged sequence, oldest first.
func (s *Store) Messages() []*types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.Message, len(s.sequence))
	copy(out, s.sequence)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sequence)
}

func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

func (s *Store) PageCursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageCursor
}

// Seeded reports whether page 0 has been applied at least once.
func (s *Store) Seeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeded
}

// MarkExhausted stops further pagination; used when the room becomes
// inaccessible mid-scroll.
func (s *Store) MarkExhausted() {
	s.mu.Lock()
	s.hasMore = false
	s.mu.Unlock()
}

// BeginFetch marks a history fetch in flight. It returns false when one is
// already running, in which case the caller drops the trigger instead of
// queueing it.
func (s *Store) BeginFetch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetching {
		return false
	}
	s.fetching = true
	return true
}

// EndFetch clears the in-flight flag whether the fetch succeeded or not, so
// a failed "load more" stays retryable.
func (s *Store) EndFetch() {
	s.mu.Lock()
	s.fetching = false
	s.mu.Unlock()
}
