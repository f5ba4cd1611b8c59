package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/storyvault/config"
	"github.com/cppla/storyvault/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "storyvault.db") + "?_busy_timeout=5000&_foreign_keys=on"
	db, err := config.OpenDatabase(config.DatabaseOptions{Driver: "sqlite", DSN: dsn, LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, &models.Author{}, &models.Post{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedAuthor(t *testing.T, db *gorm.DB, email, ip string) *models.Author {
	t.Helper()
	a := &models.Author{Email: email, Name: "seed", IPAddress: ip, CreatedAt: baseTime, UpdatedAt: baseTime}
	require.NoError(t, db.Create(a).Error)
	return a
}

func seedPost(t *testing.T, db *gorm.DB, author *models.Author, createdAt time.Time, suffix string) *models.Post {
	t.Helper()
	p := &models.Post{
		AuthorID:    author.ID,
		Message:     "message " + suffix,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
		EditToken:   "edit-" + suffix,
		DeleteToken: "delete-" + suffix,
	}
	require.NoError(t, NewPostRepository(db).Create(context.Background(), p))
	return p
}
