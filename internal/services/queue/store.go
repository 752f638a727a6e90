package queue

import (
	"errors"
	"fmt"
	"sync"

	"notefeed-desktop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists publish tasks. Upload workers and the UI refresh path call
// it concurrently, so every operation runs under one store-wide lock. The
// lock only covers the disk access burst, never network I/O.
type Store struct {
	db *gorm.DB
	mu sync.Mutex
}

// NewStore creates a task store on top of an open database handle
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// InsertOrReplace writes a task row, replacing any existing row with the
// same local id
func (s *Store) InsertOrReplace(task *models.PublishTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "local_id"}},
		UpdateAll: true,
	}).Create(task).Error
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// UpdateStatus transitions a task's status. serverID is only persisted
// together with a Succeeded status, keeping the serverId-iff-Succeeded
// invariant. Updating a missing row is a no-op, not an error.
func (s *Store) UpdateStatus(localID string, status int, serverID *int64, errorMsg *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updates := map[string]interface{}{"status": status}
	if status == models.StatusSucceeded && serverID != nil {
		updates["server_id"] = *serverID
		updates["progress"] = 100
	}
	if errorMsg != nil {
		updates["error_msg"] = *errorMsg
	}

	err := s.db.Model(&models.PublishTask{}).
		Where("local_id = ?", localID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", localID, err)
	}
	return nil
}

// FetchByLocalID loads one task, returning nil (no error) when absent
func (s *Store) FetchByLocalID(localID string) (*models.PublishTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var task models.PublishTask
	err := s.db.Where("local_id = ?", localID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load task %s: %w", localID, err)
	}
	return &task, nil
}

// FetchAll returns every task row, newest first
func (s *Store) FetchAll() ([]models.PublishTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []models.PublishTask
	if err := s.db.Order("create_time DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	return tasks, nil
}

// FetchNonTerminal returns tasks still awaiting a terminal outcome, newest
// first. The recovery sweep uses this to find work interrupted by a crash.
func (s *Store) FetchNonTerminal() ([]models.PublishTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []models.PublishTask
	err := s.db.
		Where("status IN ?", []int{models.StatusPending, models.StatusUploading}).
		Order("create_time DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load in-flight tasks: %w", err)
	}
	return tasks, nil
}

// DeleteTerminal removes rows in a terminal state (Succeeded or Failed)
func (s *Store) DeleteTerminal() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.
		Where("status IN ?", []int{models.StatusSucceeded, models.StatusFailed}).
		Delete(&models.PublishTask{}).Error
	if err != nil {
		return fmt.Errorf("failed to clean up terminal tasks: %w", err)
	}
	return nil
}
