package drafts

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"notefeed-desktop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// The compose screen keeps at most one draft; saves replace it in place
const draftRowID = 1

// Service persists the compose-screen draft. The save path (navigating
// away) and the restore path (reopening the screen) can race, so access is
// serialized the same way as the task store.
type Service struct {
	db *gorm.DB
	mu sync.Mutex
}

// NewService creates a draft service on top of an open database handle
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Save replaces the draft with the given content. Media references are
// stored as-is so the compose screen can re-select them on restore.
func (s *Service) Save(title, content string, mediaRefs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := &models.Draft{
		ID:        draftRowID,
		Title:     title,
		Content:   content,
		UpdatedAt: time.Now(),
	}
	draft.SetMedia(mediaRefs)

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(draft).Error
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Get returns the stored draft, or nil when none exists
func (s *Service) Get() (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var draft models.Draft
	err := s.db.First(&draft, "id = ?", draftRowID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return &draft, nil
}

// Clear removes the stored draft (after a successful publish)
func (s *Service) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Delete(&models.Draft{}, "id = ?", draftRowID).Error
	if err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}
