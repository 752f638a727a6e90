package queue

import (
	"fmt"
	"log"
	"sync"
	"time"

	"notefeed-desktop/internal/models"

	"github.com/google/uuid"
)

// Scheduler is the external retry/backoff mechanism the queue hands work to.
// Enqueue must not block; delay, backoff and the retry ceiling are entirely
// the scheduler's concern.
type Scheduler interface {
	Enqueue(localID string)
}

// Manager owns the task store and a reactive snapshot of it. It is the only
// writer of persisted task state: the worker reports transitions through it
// so that every mutation triggers a visible, consistent snapshot refresh.
type Manager struct {
	store     *Store
	scheduler Scheduler

	mu       sync.Mutex
	snapshot []models.PublishTask
	subs     map[chan []models.PublishTask]struct{}

	initOnce sync.Once
}

// NewManager creates a task queue manager. Init must be called once before
// publishing.
func NewManager(store *Store, scheduler Scheduler) *Manager {
	return &Manager{
		store:     store,
		scheduler: scheduler,
		subs:      make(map[chan []models.PublishTask]struct{}),
	}
}

// Init performs the startup cleanup pass (removes rows already in a terminal
// state) and loads the initial snapshot. Idempotent; only the first call
// does work.
func (m *Manager) Init() error {
	var initErr error
	m.initOnce.Do(func() {
		if err := m.store.DeleteTerminal(); err != nil {
			// Stale terminal rows are harmless; keep going
			log.Printf("WARNING: Failed to clean up old tasks: %v", err)
		}
		if err := m.Refresh(); err != nil {
			initErr = err
		}
	})
	return initErr
}

// Publish persists a new Pending task, refreshes the observable snapshot,
// and schedules one upload for it. Returns the task's local id without
// waiting on any network activity.
func (m *Manager) Publish(title, content string, mediaRefs []string) (string, error) {
	task := &models.PublishTask{
		LocalID:    uuid.New().String(),
		Status:     models.StatusPending,
		Title:      title,
		Content:    content,
		CreateTime: time.Now().UnixMilli(),
	}
	task.SetMedia(mediaRefs)

	if err := m.store.InsertOrReplace(task); err != nil {
		return "", fmt.Errorf("failed to persist publish task: %w", err)
	}

	// Snapshot must reflect the new task before this call returns
	if err := m.Refresh(); err != nil {
		log.Printf("WARNING: Failed to refresh task snapshot: %v", err)
	}

	m.scheduler.Enqueue(task.LocalID)
	log.Printf("Publish task enqueued: %s", task.LocalID)

	return task.LocalID, nil
}

// Task loads one task by local id, nil when absent
func (m *Manager) Task(localID string) (*models.PublishTask, error) {
	return m.store.FetchByLocalID(localID)
}

// UpdateStatus persists a status transition and refreshes the snapshot.
// The worker reports all of its progress through here.
func (m *Manager) UpdateStatus(localID string, status int, serverID *int64, errorMsg *string) error {
	if err := m.store.UpdateStatus(localID, status, serverID, errorMsg); err != nil {
		return err
	}
	if err := m.Refresh(); err != nil {
		log.Printf("WARNING: Failed to refresh task snapshot: %v", err)
	}
	return nil
}

// Tasks returns the current snapshot, newest first
func (m *Manager) Tasks() []models.PublishTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.PublishTask, len(m.snapshot))
	copy(out, m.snapshot)
	return out
}

// Subscribe returns a channel that receives the task snapshot after every
// mutation. The channel is conflating: a slow receiver only observes the
// latest snapshot, never a backlog.
func (m *Manager) Subscribe() chan []models.PublishTask {
	ch := make(chan []models.PublishTask, 1)

	m.mu.Lock()
	m.subs[ch] = struct{}{}
	snap := make([]models.PublishTask, len(m.snapshot))
	copy(snap, m.snapshot)
	m.mu.Unlock()

	ch <- snap
	return ch
}

// Unsubscribe removes a subscription channel
func (m *Manager) Unsubscribe(ch chan []models.PublishTask) {
	m.mu.Lock()
	delete(m.subs, ch)
	m.mu.Unlock()
}

// Refresh recomputes the observable snapshot with a full reload from the
// store and notifies subscribers. Task counts are single-digit, so a full
// reload stays cheaper than tracking incremental diffs correctly.
func (m *Manager) Refresh() error {
	tasks, err := m.store.FetchAll()
	if err != nil {
		return fmt.Errorf("failed to reload task snapshot: %w", err)
	}

	m.mu.Lock()
	m.snapshot = tasks
	for ch := range m.subs {
		snap := make([]models.PublishTask, len(tasks))
		copy(snap, tasks)
		// Conflate: drop the stale pending snapshot, then deliver
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
	m.mu.Unlock()

	return nil
}

// RecoverInFlight re-enqueues tasks that were left Pending or Uploading by
// a previous process (crash before a terminal status was written). Safe to
// run repeatedly; the worker tolerates duplicate invocations.
func (m *Manager) RecoverInFlight() error {
	tasks, err := m.store.FetchNonTerminal()
	if err != nil {
		return err
	}
	for _, task := range tasks {
		log.Printf("Recovering in-flight task: %s (status %d)", task.LocalID, task.Status)
		m.scheduler.Enqueue(task.LocalID)
	}
	return nil
}
