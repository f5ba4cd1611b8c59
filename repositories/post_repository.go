package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/storyvault/models"
)

// PostRepository persists posts. Lookups only ever return active posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	FindByEditToken(ctx context.Context, token string) (*models.Post, error)
	FindByDeleteToken(ctx context.Context, token string) (*models.Post, error)
	// UpdateMessage writes message and updated_at only.
	UpdateMessage(ctx context.Context, post *models.Post) error
	// SoftDelete sets deleted_at once; a post that is already deleted yields ErrNotFound.
	SoftDelete(ctx context.Context, post *models.Post, now time.Time) error
	ListActive(ctx context.Context, page, pageSize int) ([]models.Post, int64, error)
	CountActive(ctx context.Context) (int64, error)
	CountActiveByAuthor(ctx context.Context, authorID uint) (int64, error)
	// CountActiveByIPs counts active posts whose author last posted from each IP.
	CountActiveByIPs(ctx context.Context, ips []string) (map[string]int64, error)
}

type ipPostCount struct {
	IPAddress string
	Total     int64
}

type postRepository struct {
	db   *gorm.DB
	inTx bool
}

// NewPostRepository returns a PostRepository that runs outside any transaction.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (r *postRepository) FindByEditToken(ctx context.Context, token string) (*models.Post, error) {
	return r.findByToken(ctx, "edit_token", token)
}

func (r *postRepository) FindByDeleteToken(ctx context.Context, token string) (*models.Post, error) {
	return r.findByToken(ctx, "delete_token", token)
}

func (r *postRepository) findByToken(ctx context.Context, column, token string) (*models.Post, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	q := r.db.WithContext(ctx)
	if r.inTx {
		q = forUpdate(q)
	}
	var post models.Post
	err := q.Scopes(ActivePosts).
		Preload("Author").
		Where(column+" = ?", token).
		First(&post).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func (r *postRepository) UpdateMessage(ctx context.Context, post *models.Post) error {
	// RowsAffected is not checked: MySQL reports 0 for an unchanged row.
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Scopes(ActivePosts).
		Where("id = ?", post.ID).
		Updates(map[string]interface{}{
			"message":    post.Message,
			"updated_at": post.UpdatedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("update post %d: %w", post.ID, err)
	}
	return nil
}

func (r *postRepository) SoftDelete(ctx context.Context, post *models.Post, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Scopes(ActivePosts).
		Where("id = ?", post.ID).
		Update("deleted_at", now)
	if res.Error != nil {
		return fmt.Errorf("soft delete post %d: %w", post.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	post.DeletedAt = &now
	return nil
}

func (r *postRepository) ListActive(ctx context.Context, page, pageSize int) ([]models.Post, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	total, err := r.CountActive(ctx)
	if err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	err = r.db.WithContext(ctx).
		Scopes(ActivePosts).
		Preload("Author").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	return posts, total, nil
}

func (r *postRepository) CountActive(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(ActivePosts).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return total, nil
}

func (r *postRepository) CountActiveByAuthor(ctx context.Context, authorID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Scopes(ActivePosts).
		Where("author_id = ?", authorID).
		Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("count posts for author %d: %w", authorID, err)
	}
	return total, nil
}

func (r *postRepository) CountActiveByIPs(ctx context.Context, ips []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(ips))
	if len(ips) == 0 {
		return counts, nil
	}

	var rows []ipPostCount
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("authors.ip_address AS ip_address, COUNT(posts.id) AS total").
		Joins("JOIN authors ON authors.id = posts.author_id").
		Scopes(ActivePosts).
		Where("authors.ip_address IN ?", ips).
		Group("authors.ip_address").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count posts by ip: %w", err)
	}
	for _, row := range rows {
		counts[row.IPAddress] = row.Total
	}
	return counts, nil
}
