package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cppla/storyvault/models"
	"github.com/cppla/storyvault/repositories"
)

// blindAuthors never finds an author on the plain read, so the insert always
// runs and must fall back to the locked re-read.
type blindAuthors struct {
	repositories.AuthorRepository
}

func (blindAuthors) FindByEmail(context.Context, string) (*models.Author, error) {
	return nil, repositories.ErrNotFound
}

func TestAuthorDirectory_CreatesNewAuthor(t *testing.T) {
	db := openTestDB(t)
	dir := NewAuthorDirectory(repositories.NewAuthorRepository(db), newFakeClock(baseTime), zap.NewNop())
	ctx := context.Background()

	author, err := dir.FindOrCreate(ctx, "b@x.com", "Bob", "10.0.0.2")
	require.NoError(t, err)
	assert.NotZero(t, author.ID)
	assert.Equal(t, "Bob", author.Name)
	assert.Equal(t, "10.0.0.2", author.IPAddress)
	assert.True(t, author.CreatedAt.Equal(baseTime))
	assert.Nil(t, author.LastPostAt)

	found := dir.FindByEmail(ctx, "b@x.com")
	require.NotNil(t, found)
	assert.Equal(t, author.ID, found.ID)
}

func TestAuthorDirectory_ExistingAuthorGetsNewNameAndIP(t *testing.T) {
	db := openTestDB(t)
	clock := newFakeClock(baseTime)
	dir := NewAuthorDirectory(repositories.NewAuthorRepository(db), clock, zap.NewNop())
	ctx := context.Background()

	first, err := dir.FindOrCreate(ctx, "a@x.com", "Alice", "1.1.1.1")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	again, err := dir.FindOrCreate(ctx, "a@x.com", "Alicia", "2.2.2.2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Alicia", again.Name)
	assert.Equal(t, "2.2.2.2", again.IPAddress)
	assert.True(t, again.UpdatedAt.Equal(clock.Now()))
	assert.True(t, again.CreatedAt.Equal(baseTime))
	assert.Equal(t, int64(1), countRows(t, db, &models.Author{}))
}

func TestAuthorDirectory_EmptyEmail(t *testing.T) {
	db := openTestDB(t)
	dir := NewAuthorDirectory(repositories.NewAuthorRepository(db), nil, nil)

	_, err := dir.FindOrCreate(context.Background(), "", "Nobody", "1.1.1.1")
	assert.ErrorIs(t, err, ErrEmptyEmail)
	assert.Nil(t, dir.FindByEmail(context.Background(), ""))
	assert.Zero(t, countRows(t, db, &models.Author{}))
}

func TestAuthorDirectory_LosingInsertObservesWinner(t *testing.T) {
	db := openTestDB(t)
	repo := repositories.NewAuthorRepository(db)
	ctx := context.Background()

	winner := &models.Author{Email: "race@x.com", Name: "Winner", IPAddress: "1.1.1.1", CreatedAt: baseTime, UpdatedAt: baseTime}
	require.NoError(t, repo.Create(ctx, winner))

	dir := NewAuthorDirectory(blindAuthors{repo}, newFakeClock(baseTime), zap.NewNop())
	got, err := dir.FindOrCreate(ctx, "race@x.com", "Loser", "2.2.2.2")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, got.ID)
	assert.Equal(t, "Loser", got.Name)
	assert.Equal(t, int64(1), countRows(t, db, &models.Author{}))
}

func TestAuthorDirectory_ConcurrentFindOrCreate(t *testing.T) {
	db := openTestDB(t)
	dir := NewAuthorDirectory(repositories.NewAuthorRepository(db), newFakeClock(baseTime), zap.NewNop())
	ctx := context.Background()

	const callers = 8
	ids := make([]uint, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			author, err := dir.FindOrCreate(ctx, "same@x.com", "Same", "3.3.3.3")
			errs[i] = err
			if err == nil {
				ids[i] = author.ID
			}
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.NotZero(t, ids[0])
	assert.Equal(t, int64(1), countRows(t, db, &models.Author{}))
}
