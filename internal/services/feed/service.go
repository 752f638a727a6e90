package feed

import (
	"fmt"
	"log"
	"sync"

	"notefeed-desktop/internal/api"
	"notefeed-desktop/internal/models"
	"notefeed-desktop/internal/services/queue"
)

// Client is the slice of the backend API the feed screen consumes
type Client interface {
	Feed(cursor string, size int) (*api.CursorPage, error)
	Like(targetID int64, isLiked bool) error
}

// Service owns the feed screen's presentation state: the accumulated server
// pages, the optimistic like overrides, and a subscription to the queue's
// task snapshot. Whenever any of the three changes it re-runs Merge and
// fans the result out to render subscribers.
type Service struct {
	client Client
	queue  *queue.Manager

	mu          sync.Mutex
	self        Identity
	tasks       []models.PublishTask
	serverPosts []api.PostInfo
	deltas      map[int64]LikeState
	merged      []Entry
	cursor      string
	hasMore     bool
	loading     bool
	subs        map[chan []Entry]struct{}

	taskCh chan []models.PublishTask
	stop   chan struct{}
	done   chan struct{}
}

// NewService creates a feed service over the backend client and task queue
func NewService(client Client, q *queue.Manager) *Service {
	return &Service{
		client:  client,
		queue:   q,
		deltas:  make(map[int64]LikeState),
		hasMore: true,
		subs:    make(map[chan []Entry]struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// SetIdentity records the current user, used to attribute task-derived
// entries
func (s *Service) SetIdentity(self Identity) {
	s.mu.Lock()
	s.self = self
	s.remergeLocked()
	s.mu.Unlock()
}

// Start subscribes to the task queue and begins recomputing the merged list
// on every task mutation
func (s *Service) Start() {
	s.taskCh = s.queue.Subscribe()
	go func() {
		defer close(s.done)
		for {
			select {
			case snap := <-s.taskCh:
				s.mu.Lock()
				s.tasks = snap
				s.remergeLocked()
				s.mu.Unlock()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop ends the queue subscription
func (s *Service) Stop() {
	close(s.stop)
	<-s.done
	s.queue.Unsubscribe(s.taskCh)
}

// Entries returns the current merged list
func (s *Service) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.merged))
	copy(out, s.merged)
	return out
}

// Subscribe returns a conflating channel receiving the merged list after
// every recomputation
func (s *Service) Subscribe() chan []Entry {
	ch := make(chan []Entry, 1)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	snap := make([]Entry, len(s.merged))
	copy(snap, s.merged)
	s.mu.Unlock()

	ch <- snap
	return ch
}

// Unsubscribe removes a subscription channel
func (s *Service) Unsubscribe(ch chan []Entry) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

// Refresh reloads the feed from the first page, replacing the accumulated
// server list
func (s *Service) Refresh(size int) error {
	page, err := s.client.Feed("", size)
	if err != nil {
		return fmt.Errorf("feed refresh failed: %w", err)
	}

	s.mu.Lock()
	s.serverPosts = page.List
	s.cursor = nextCursor(page)
	s.hasMore = page.HasMore
	s.remergeLocked()
	s.mu.Unlock()
	return nil
}

// LoadMore appends the next feed page. Concurrent calls are coalesced; a
// call while a page is already loading (or past the last page) is a no-op.
func (s *Service) LoadMore(size int) error {
	s.mu.Lock()
	if s.loading || !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	cursor := s.cursor
	s.mu.Unlock()

	page, err := s.client.Feed(cursor, size)

	s.mu.Lock()
	s.loading = false
	if err == nil {
		s.serverPosts = append(s.serverPosts, page.List...)
		s.cursor = nextCursor(page)
		s.hasMore = page.HasMore
		s.remergeLocked()
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("feed page load failed: %w", err)
	}
	return nil
}

// ToggleLike applies a like toggle optimistically and confirms it in the
// background. On failure the inverse pair is written back, but only if no
// newer delta arrived for the same entity in the meantime (last writer
// wins).
func (s *Service) ToggleLike(resolvedID int64, isLiked bool) {
	s.mu.Lock()
	current := 0
	for _, e := range s.merged {
		if e.ResolvedID == resolvedID {
			current = e.LikeCount
			break
		}
	}
	count := current - 1
	if isLiked {
		count = current + 1
	}
	written := LikeState{IsLiked: isLiked, Count: count}
	s.deltas[resolvedID] = written
	s.remergeLocked()
	s.mu.Unlock()

	go func() {
		if err := s.client.Like(resolvedID, isLiked); err != nil {
			log.Printf("WARNING: Like toggle for %d failed, rolling back: %v", resolvedID, err)
			s.mu.Lock()
			// Roll back only if our write is still the latest; a newer user
			// action supersedes the rollback
			if s.deltas[resolvedID] == written {
				s.deltas[resolvedID] = LikeState{IsLiked: !isLiked, Count: current}
				s.remergeLocked()
			}
			s.mu.Unlock()
		}
	}()
}

// SyncLike reconciles a confirmed like state reported by the detail screen
func (s *Service) SyncLike(resolvedID int64, isLiked bool, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := LikeState{IsLiked: isLiked, Count: count}
	if existing, ok := s.deltas[resolvedID]; ok && existing == next {
		return
	}
	s.deltas[resolvedID] = next
	s.remergeLocked()
}

// remergeLocked recomputes the merged list and notifies subscribers.
// Caller holds s.mu.
func (s *Service) remergeLocked() {
	s.merged = Merge(s.tasks, s.serverPosts, s.deltas, s.self)
	for ch := range s.subs {
		snap := make([]Entry, len(s.merged))
		copy(snap, s.merged)
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func nextCursor(page *api.CursorPage) string {
	if page.NextCursor == nil {
		return ""
	}
	return *page.NextCursor
}
