package queue

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"notefeed-desktop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeScheduler records enqueues and what the queue snapshot contained at
// enqueue time
type fakeScheduler struct {
	mu       sync.Mutex
	enqueued []string
	manager  *Manager
	visible  map[string]bool // localID -> task was in snapshot when enqueued
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{visible: make(map[string]bool)}
}

func (f *fakeScheduler) Enqueue(localID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, localID)
	if f.manager != nil {
		for _, task := range f.manager.Tasks() {
			if task.LocalID == localID {
				f.visible[localID] = true
			}
		}
	}
}

func (f *fakeScheduler) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.enqueued))
	copy(out, f.enqueued)
	return out
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "queue_test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PublishTask{}))
	return db
}

func newTestManager(t *testing.T) (*Manager, *Store, *fakeScheduler) {
	t.Helper()
	store := NewStore(newTestDB(t))
	sched := newFakeScheduler()
	manager := NewManager(store, sched)
	sched.manager = manager
	require.NoError(t, manager.Init())
	return manager, store, sched
}

func TestManagerPublish(t *testing.T) {
	t.Run("Should persist exactly one Pending task per publish call", func(t *testing.T) {
		manager, store, _ := newTestManager(t)

		localID, err := manager.Publish("title", "body", []string{"/tmp/img1.jpg"})
		require.NoError(t, err)
		require.NotEmpty(t, localID)

		task, err := store.FetchByLocalID(localID)
		require.NoError(t, err)
		require.NotNil(t, task)
		assert.Equal(t, models.StatusPending, task.Status)
		assert.Equal(t, "title", task.Title)
		assert.Equal(t, "body", task.Content)
		assert.Equal(t, []string{"/tmp/img1.jpg"}, task.Media())
		assert.Nil(t, task.ServerID)
		assert.NotZero(t, task.CreateTime)

		all, err := store.FetchAll()
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("Should assign unique local ids across publish calls", func(t *testing.T) {
		manager, _, _ := newTestManager(t)

		first, err := manager.Publish("a", "", nil)
		require.NoError(t, err)
		second, err := manager.Publish("b", "", nil)
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("Should reflect the task in the snapshot before returning", func(t *testing.T) {
		manager, _, sched := newTestManager(t)

		localID, err := manager.Publish("title", "body", nil)
		require.NoError(t, err)

		assert.True(t, sched.visible[localID],
			"Snapshot must already contain the task when the scheduler sees it")

		tasks := manager.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, localID, tasks[0].LocalID)
	})

	t.Run("Should schedule exactly one upload per publish", func(t *testing.T) {
		manager, _, sched := newTestManager(t)

		localID, err := manager.Publish("title", "body", nil)
		require.NoError(t, err)

		assert.Equal(t, []string{localID}, sched.calls())
	})

	t.Run("Should order the snapshot newest first", func(t *testing.T) {
		manager, store, _ := newTestManager(t)

		older := &models.PublishTask{LocalID: "older", Status: models.StatusPending, CreateTime: 100}
		newer := &models.PublishTask{LocalID: "newer", Status: models.StatusPending, CreateTime: 200}
		older.SetMedia(nil)
		newer.SetMedia(nil)
		require.NoError(t, store.InsertOrReplace(older))
		require.NoError(t, store.InsertOrReplace(newer))
		require.NoError(t, manager.Refresh())

		tasks := manager.Tasks()
		require.Len(t, tasks, 2)
		assert.Equal(t, "newer", tasks[0].LocalID)
		assert.Equal(t, "older", tasks[1].LocalID)
	})
}

func TestManagerInit(t *testing.T) {
	t.Run("Should remove terminal rows in the startup cleanup pass", func(t *testing.T) {
		store := NewStore(newTestDB(t))
		seed := []models.PublishTask{
			{LocalID: "done", Status: models.StatusSucceeded, CreateTime: 1},
			{LocalID: "dead", Status: models.StatusFailed, CreateTime: 2},
			{LocalID: "inflight", Status: models.StatusUploading, CreateTime: 3},
		}
		serverID := int64(9)
		seed[0].ServerID = &serverID
		for i := range seed {
			seed[i].SetMedia(nil)
			require.NoError(t, store.InsertOrReplace(&seed[i]))
		}

		sched := newFakeScheduler()
		manager := NewManager(store, sched)
		require.NoError(t, manager.Init())

		tasks := manager.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, "inflight", tasks[0].LocalID)
	})

	t.Run("Should only run the cleanup pass once", func(t *testing.T) {
		manager, store, _ := newTestManager(t)

		failed := &models.PublishTask{LocalID: "late-failure", Status: models.StatusFailed, CreateTime: 1}
		failed.SetMedia(nil)
		require.NoError(t, store.InsertOrReplace(failed))
		require.NoError(t, manager.Refresh())

		// A second Init must not wipe the freshly failed task
		require.NoError(t, manager.Init())
		tasks := manager.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, "late-failure", tasks[0].LocalID)
	})
}

func TestManagerUpdateStatus(t *testing.T) {
	t.Run("Should persist serverId only with a Succeeded status", func(t *testing.T) {
		manager, store, _ := newTestManager(t)
		localID, err := manager.Publish("title", "body", nil)
		require.NoError(t, err)

		serverID := int64(7)
		require.NoError(t, manager.UpdateStatus(localID, models.StatusUploading, &serverID, nil))

		task, err := store.FetchByLocalID(localID)
		require.NoError(t, err)
		assert.Nil(t, task.ServerID, "Uploading must not carry a server id")

		require.NoError(t, manager.UpdateStatus(localID, models.StatusSucceeded, &serverID, nil))
		task, err = store.FetchByLocalID(localID)
		require.NoError(t, err)
		require.NotNil(t, task.ServerID)
		assert.Equal(t, int64(7), *task.ServerID)
	})

	t.Run("Should tolerate updates for missing rows", func(t *testing.T) {
		manager, _, _ := newTestManager(t)
		assert.NoError(t, manager.UpdateStatus("no-such-task", models.StatusFailed, nil, nil))
	})
}

func TestManagerSubscribe(t *testing.T) {
	t.Run("Should deliver a snapshot on every mutation", func(t *testing.T) {
		manager, _, _ := newTestManager(t)

		ch := manager.Subscribe()
		defer manager.Unsubscribe(ch)

		initial := <-ch
		assert.Empty(t, initial)

		localID, err := manager.Publish("title", "body", nil)
		require.NoError(t, err)

		select {
		case snap := <-ch:
			require.Len(t, snap, 1)
			assert.Equal(t, localID, snap[0].LocalID)
		case <-time.After(time.Second):
			t.Fatal("no snapshot delivered after publish")
		}
	})

	t.Run("Should conflate snapshots for slow receivers", func(t *testing.T) {
		manager, _, _ := newTestManager(t)

		ch := manager.Subscribe()
		defer manager.Unsubscribe(ch)
		<-ch

		_, err := manager.Publish("first", "", nil)
		require.NoError(t, err)
		second, err := manager.Publish("second", "", nil)
		require.NoError(t, err)

		// Only the latest snapshot is pending
		snap := <-ch
		require.Len(t, snap, 2)
		found := false
		for _, task := range snap {
			if task.LocalID == second {
				found = true
			}
		}
		assert.True(t, found)

		select {
		case <-ch:
			t.Fatal("stale snapshot was not conflated")
		default:
		}
	})
}

func TestStoreFetchNonTerminal(t *testing.T) {
	t.Run("Should return only Pending and Uploading rows", func(t *testing.T) {
		store := NewStore(newTestDB(t))
		statuses := map[string]int{
			"p": models.StatusPending,
			"u": models.StatusUploading,
			"s": models.StatusSucceeded,
			"f": models.StatusFailed,
		}
		ct := int64(0)
		for id, status := range statuses {
			ct++
			task := &models.PublishTask{LocalID: id, Status: status, CreateTime: ct}
			task.SetMedia(nil)
			require.NoError(t, store.InsertOrReplace(task))
		}

		tasks, err := store.FetchNonTerminal()
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		for _, task := range tasks {
			assert.Contains(t, []int{models.StatusPending, models.StatusUploading}, task.Status)
		}
	})
}
