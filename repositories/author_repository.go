package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/storyvault/models"
)

// AuthorRepository persists authors.
type AuthorRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Author, error)
	// FindByEmailLocked re-reads the row with a locking read so it observes rows
	// committed by concurrent transactions.
	FindByEmailLocked(ctx context.Context, email string) (*models.Author, error)
	Create(ctx context.Context, author *models.Author) error
	// Save inserts a new author or updates name, ip_address and updated_at.
	// It never writes last_post_at.
	Save(ctx context.Context, author *models.Author) error
	// TouchLastPost sets last_post_at = now only when the author is outside the
	// rate limit window. It reports false when no row qualified.
	TouchLastPost(ctx context.Context, id uint, now time.Time, window time.Duration) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type authorRepository struct {
	db   *gorm.DB
	inTx bool
}

// NewAuthorRepository returns an AuthorRepository that runs outside any transaction.
func NewAuthorRepository(db *gorm.DB) AuthorRepository {
	return &authorRepository{db: db}
}

func (r *authorRepository) FindByEmail(ctx context.Context, email string) (*models.Author, error) {
	var author models.Author
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&author).Error; err != nil {
		return nil, notFound(err)
	}
	return &author, nil
}

func (r *authorRepository) FindByEmailLocked(ctx context.Context, email string) (*models.Author, error) {
	var author models.Author
	q := r.db.WithContext(ctx)
	if r.inTx {
		q = forUpdate(q)
	}
	if err := q.Where("email = ?", email).First(&author).Error; err != nil {
		return nil, notFound(err)
	}
	return &author, nil
}

func (r *authorRepository) Create(ctx context.Context, author *models.Author) error {
	// Nested Transaction becomes a savepoint inside an outer transaction, so a
	// unique violation does not poison it on PostgreSQL.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Posts").Create(author).Error
	})
	if err != nil {
		author.ID = 0
		if isDuplicateKey(err) {
			return fmt.Errorf("create author: %w", ErrDuplicateEmail)
		}
		return fmt.Errorf("create author: %w", err)
	}
	return nil
}

func (r *authorRepository) Save(ctx context.Context, author *models.Author) error {
	if author.ID == 0 {
		return r.Create(ctx, author)
	}
	err := r.db.WithContext(ctx).
		Model(author).
		Select("Name", "IPAddress", "UpdatedAt").
		Updates(author).Error
	if err != nil {
		return fmt.Errorf("update author %d: %w", author.ID, err)
	}
	return nil
}

func (r *authorRepository) TouchLastPost(ctx context.Context, id uint, now time.Time, window time.Duration) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Author{}).
		Where("id = ?", id).
		Where("last_post_at IS NULL OR last_post_at <= ?", now.Add(-window)).
		Update("last_post_at", now)
	if res.Error != nil {
		return false, fmt.Errorf("touch last_post_at for author %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *authorRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Author{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count authors: %w", err)
	}
	return total, nil
}
