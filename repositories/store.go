package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store groups the repositories and runs units of work against them.
type Store interface {
	Authors() AuthorRepository
	Posts() PostRepository
	// Transaction runs fn against a Store bound to a single database transaction.
	// A non-nil error from fn, or a cancelled ctx, rolls the transaction back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db   *gorm.DB
	inTx bool
}

// NewStore returns a gorm backed Store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Authors() AuthorRepository {
	return &authorRepository{db: s.db, inTx: s.inTx}
}

func (s *gormStore) Posts() PostRepository {
	return &postRepository{db: s.db, inTx: s.inTx}
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx, inTx: true})
	})
}

// ActivePosts limits a posts query to rows that have not been soft deleted.
func ActivePosts(db *gorm.DB) *gorm.DB {
	return db.Where("posts.deleted_at IS NULL")
}

// forUpdate adds a row lock where the dialect supports one. SQLite serializes
// writers at the database level and rejects FOR UPDATE.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
