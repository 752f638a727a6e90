package drafts

import (
	"path/filepath"
	"testing"

	"notefeed-desktop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "drafts_test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Draft{}))
	return NewService(db)
}

func TestDraftService(t *testing.T) {
	t.Run("Should return nil when no draft exists", func(t *testing.T) {
		svc := newTestService(t)
		draft, err := svc.Get()
		require.NoError(t, err)
		assert.Nil(t, draft)
	})

	t.Run("Should round-trip a saved draft", func(t *testing.T) {
		svc := newTestService(t)
		require.NoError(t, svc.Save("title", "body", []string{"/tmp/a.jpg", "/tmp/b.jpg"}))

		draft, err := svc.Get()
		require.NoError(t, err)
		require.NotNil(t, draft)
		assert.Equal(t, "title", draft.Title)
		assert.Equal(t, "body", draft.Content)
		assert.Equal(t, []string{"/tmp/a.jpg", "/tmp/b.jpg"}, draft.Media())
	})

	t.Run("Should replace the previous draft on save", func(t *testing.T) {
		svc := newTestService(t)
		require.NoError(t, svc.Save("first", "one", nil))
		require.NoError(t, svc.Save("second", "two", []string{"/tmp/c.jpg"}))

		draft, err := svc.Get()
		require.NoError(t, err)
		require.NotNil(t, draft)
		assert.Equal(t, "second", draft.Title)
		assert.Equal(t, []string{"/tmp/c.jpg"}, draft.Media())
	})

	t.Run("Should clear the draft", func(t *testing.T) {
		svc := newTestService(t)
		require.NoError(t, svc.Save("title", "body", nil))
		require.NoError(t, svc.Clear())

		draft, err := svc.Get()
		require.NoError(t, err)
		assert.Nil(t, draft)
	})

	t.Run("Should tolerate clearing a missing draft", func(t *testing.T) {
		svc := newTestService(t)
		assert.NoError(t, svc.Clear())
	})
}
