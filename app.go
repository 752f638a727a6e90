package main

import (
	"log"
	"os"

	"notefeed-desktop/internal/api"
	"notefeed-desktop/internal/database"
	"notefeed-desktop/internal/models"
	"notefeed-desktop/internal/services/drafts"
	"notefeed-desktop/internal/services/feed"
	"notefeed-desktop/internal/services/queue"
	"notefeed-desktop/internal/services/scheduler"
	"notefeed-desktop/internal/token"

	"gorm.io/gorm"
)

// App struct - main application state
type App struct {
	db           *gorm.DB
	tokens       *token.Store
	client       *api.Client
	dispatcher   *scheduler.Dispatcher
	queueManager *queue.Manager
	feedService  *feed.Service
	draftService *drafts.Service
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{}
}

// startup wires the services together. All instances are constructed
// explicitly and injected; nothing reaches for process-global state.
func (a *App) startup() {
	log.Println("Application starting up...")

	db, err := database.Init()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	a.db = db

	a.tokens = token.NewStore()

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080/api"
	}
	a.client = api.NewClient(baseURL, a.tokens.Token)
	log.Printf("API client initialized for %s", baseURL)

	// Queue manager and dispatcher reference each other: the manager hands
	// new tasks to the dispatcher, the dispatcher runs the worker against
	// the manager
	a.dispatcher = scheduler.NewDispatcher()
	a.queueManager = queue.NewManager(queue.NewStore(db), a.dispatcher)
	worker := queue.NewWorker(a.queueManager, a.client)
	a.dispatcher.SetRunner(worker.Run)

	if err := a.queueManager.Init(); err != nil {
		log.Fatalf("Failed to initialize task queue: %v", err)
	}
	log.Println("Task queue initialized")

	if err := a.dispatcher.Start(a.queueManager); err != nil {
		log.Printf("WARNING: Failed to start upload dispatcher: %v", err)
	} else {
		log.Println("Upload dispatcher started")
	}

	a.feedService = feed.NewService(a.client, a.queueManager)
	a.feedService.Start()
	log.Println("Feed service initialized")

	a.draftService = drafts.NewService(db)
	log.Println("Draft service initialized")

	log.Println("Startup complete")
}

// shutdown is called when the app is closing
func (a *App) shutdown() {
	log.Println("Application shutting down...")

	if a.feedService != nil {
		a.feedService.Stop()
	}
	if a.dispatcher != nil {
		a.dispatcher.Stop()
	}
	if err := database.Close(a.db); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Shutdown complete")
}

// ====================================================================================
// UI-FACING METHODS
// ====================================================================================

// Auth

// Login authenticates, stores the token in the keychain and records the
// user identity for task-derived feed entries
func (a *App) Login(username, password string) error {
	result, err := a.client.Login(username, password)
	if err != nil {
		return err
	}
	if err := a.tokens.Save(result.Token); err != nil {
		return err
	}
	a.feedService.SetIdentity(feed.Identity{
		Nickname:  result.Nickname,
		AvatarRef: result.AvatarURL,
	})
	return nil
}

// Logout clears the stored token
func (a *App) Logout() error {
	return a.tokens.Clear()
}

// IsLoggedIn reports whether an auth token is stored
func (a *App) IsLoggedIn() bool {
	return a.tokens.IsLoggedIn()
}

// Publishing

// Publish persists a new publish task and schedules its upload. Returns the
// task's local id immediately; progress is observable through the feed.
func (a *App) Publish(title, content string, mediaRefs []string) (string, error) {
	localID, err := a.queueManager.Publish(title, content, mediaRefs)
	if err != nil {
		return "", err
	}
	// The draft is consumed by publishing it
	if err := a.draftService.Clear(); err != nil {
		log.Printf("WARNING: Failed to clear draft after publish: %v", err)
	}
	return localID, nil
}

// PendingTasks returns the current publish task snapshot, newest first
func (a *App) PendingTasks() []models.PublishTask {
	return a.queueManager.Tasks()
}

// Feed

// RefreshFeed reloads the feed from the first page
func (a *App) RefreshFeed(size int) error {
	return a.feedService.Refresh(size)
}

// LoadMoreFeed appends the next feed page
func (a *App) LoadMoreFeed(size int) error {
	return a.feedService.LoadMore(size)
}

// FeedEntries returns the current merged feed list
func (a *App) FeedEntries() []feed.Entry {
	return a.feedService.Entries()
}

// ToggleLike applies an optimistic like toggle
func (a *App) ToggleLike(resolvedID int64, isLiked bool) {
	a.feedService.ToggleLike(resolvedID, isLiked)
}

// SyncLike reconciles a like state confirmed by the detail screen
func (a *App) SyncLike(resolvedID int64, isLiked bool, count int) {
	a.feedService.SyncLike(resolvedID, isLiked, count)
}

// GetPost fetches the detail view of a post
func (a *App) GetPost(id int64) (*api.PostDetail, error) {
	return a.client.GetPost(id)
}

// Drafts

// SaveDraft replaces the compose-screen draft
func (a *App) SaveDraft(title, content string, mediaRefs []string) error {
	return a.draftService.Save(title, content, mediaRefs)
}

// GetDraft returns the stored draft, or nil when none exists
func (a *App) GetDraft() (*models.Draft, error) {
	return a.draftService.Get()
}

// ClearDraft removes the stored draft
func (a *App) ClearDraft() error {
	return a.draftService.Clear()
}
