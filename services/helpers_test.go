package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/storyvault/config"
	"github.com/cppla/storyvault/models"
	"github.com/cppla/storyvault/repositories"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

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

// fakeClock is a settable Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyPostCreated(ctx context.Context, post *models.Post, author *models.Author) error {
	args := m.Called(ctx, post, author)
	return args.Error(0)
}

// staleAuthors hides last_post_at on plain reads, simulating a reader that
// raced a concurrent post for the same author.
type staleAuthors struct {
	repositories.AuthorRepository
}

func (s staleAuthors) FindByEmail(ctx context.Context, email string) (*models.Author, error) {
	a, err := s.AuthorRepository.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	a.LastPostAt = nil
	return a, nil
}

type staleStore struct {
	repositories.Store
}

func (s staleStore) Authors() repositories.AuthorRepository {
	return staleAuthors{s.Store.Authors()}
}

func (s staleStore) Transaction(ctx context.Context, fn func(tx repositories.Store) error) error {
	return s.Store.Transaction(ctx, func(tx repositories.Store) error {
		return fn(staleStore{tx})
	})
}

// fixedTokens always issues the same pair.
type fixedTokens struct {
	pair TokenPair
}

func (f fixedTokens) IssueTokenPair() (TokenPair, error) { return f.pair, nil }

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
