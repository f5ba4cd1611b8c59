package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/storyvault/models"
	"github.com/cppla/storyvault/repositories"
)

const (
	// EditWindow is how long after creation a post's message may be changed.
	EditWindow = 12 * time.Hour
	// DeleteWindow is how long after creation a post may be deleted.
	DeleteWindow = 14 * 24 * time.Hour

	defaultPageSize = 20
)

var (
	errRateLimited = errors.New("rate limited")
	errUnavailable = errors.New("post unavailable")
)

// PostForm is a validated submission.
type PostForm struct {
	Author  string
	Email   string
	Message string
}

// PostService orchestrates the post lifecycle: create, edit, delete and list.
type PostService struct {
	store    repositories.Store
	authors  *AuthorDirectory
	tokens   TokenIssuer
	notifier Notifier
	clock    Clock
	logger   *zap.Logger
}

// NewPostService wires a PostService. notifier may be nil.
func NewPostService(store repositories.Store, tokens TokenIssuer, notifier Notifier, clock Clock, logger *zap.Logger) *PostService {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokens == nil {
		tokens = NewTokenIssuer()
	}
	return &PostService{
		store:    store,
		authors:  NewAuthorDirectory(store.Authors(), clock, logger),
		tokens:   tokens,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// Authors exposes the directory bound to the non-transactional store.
func (s *PostService) Authors() *AuthorDirectory {
	return s.authors
}

// CreatePost resolves the author, enforces the rate limit and persists author
// and post in one transaction. The notifier runs once, after commit.
func (s *PostService) CreatePost(ctx context.Context, form PostForm, ip string) Result {
	now := storageTime(s.clock)

	var (
		created *models.Post
		limited Result
	)
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		author, err := s.authors.WithRepository(tx.Authors()).FindOrCreate(ctx, form.Email, form.Author, ip)
		if err != nil {
			return fmt.Errorf("resolve author: %w", err)
		}

		if !CanPostNow(author, now) {
			limited = rateLimitedResult(author, now)
			return errRateLimited
		}

		if err := tx.Authors().Save(ctx, author); err != nil {
			return fmt.Errorf("save author: %w", err)
		}

		tokens, err := s.tokens.IssueTokenPair()
		if err != nil {
			return fmt.Errorf("issue tokens: %w", err)
		}

		post := &models.Post{
			AuthorID:    author.ID,
			Message:     form.Message,
			CreatedAt:   now,
			UpdatedAt:   now,
			EditToken:   tokens.EditToken,
			DeleteToken: tokens.DeleteToken,
		}
		if err := tx.Posts().Create(ctx, post); err != nil {
			return err
		}

		touched, err := tx.Authors().TouchLastPost(ctx, author.ID, now, RateLimitWindow)
		if err != nil {
			return err
		}
		if !touched {
			// Another request for this author committed inside the window after our check.
			limited = rateLimitedResult(s.reloadForRateLimit(ctx, tx, author, now), now)
			return errRateLimited
		}

		author.LastPostAt = &now
		post.Author = *author
		created = post
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, errRateLimited):
		s.logger.Info("post rejected by rate limit", zap.Int("remaining_seconds", limited.RemainingSeconds))
		return limited
	default:
		s.logger.Error("post creation failed", zap.Error(err))
		return Result{Kind: KindCreationFailed, Message: MsgCreationFailed}
	}

	s.logger.Info("post created", zap.Uint("post_id", created.ID), zap.Uint("author_id", created.AuthorID))
	s.notify(ctx, created)
	return Result{Kind: KindOK, Message: MsgCreated, Post: created}
}

// reloadForRateLimit returns the committed author row so the wait shown to the
// user reflects the winning request. Falls back to treating now as the last post.
func (s *PostService) reloadForRateLimit(ctx context.Context, tx repositories.Store, author *models.Author, now time.Time) *models.Author {
	fresh, err := tx.Authors().FindByEmailLocked(ctx, author.Email)
	if err == nil && fresh.LastPostAt != nil {
		return fresh
	}
	fallback := *author
	fallback.LastPostAt = &now
	return &fallback
}

func (s *PostService) notify(ctx context.Context, post *models.Post) {
	if s.notifier == nil {
		return
	}
	// The post is committed; a client disconnect must not abort the mail.
	if err := s.notifier.NotifyPostCreated(context.WithoutCancel(ctx), post, &post.Author); err != nil {
		s.logger.Warn("post notification failed", zap.Uint("post_id", post.ID), zap.Error(err))
	}
}

// CanEdit reports whether post is still inside the edit window.
func CanEdit(post *models.Post, now time.Time) bool {
	return now.Sub(post.CreatedAt) <= EditWindow
}

// CanDelete reports whether post is still inside the delete window.
func CanDelete(post *models.Post, now time.Time) bool {
	return now.Sub(post.CreatedAt) <= DeleteWindow
}

// GetPostForEdit returns the active post behind token while it is editable.
func (s *PostService) GetPostForEdit(ctx context.Context, token string) (*models.Post, bool) {
	post, err := s.findEditable(ctx, s.store.Posts(), token, storageTime(s.clock))
	if err != nil {
		s.logLookupError("edit", err)
		return nil, false
	}
	return post, true
}

// GetPostForDelete returns the active post behind token while it is deletable.
func (s *PostService) GetPostForDelete(ctx context.Context, token string) (*models.Post, bool) {
	post, err := s.findDeletable(ctx, s.store.Posts(), token, storageTime(s.clock))
	if err != nil {
		s.logLookupError("delete", err)
		return nil, false
	}
	return post, true
}

// UpdatePostByToken replaces the message of an editable post.
func (s *PostService) UpdatePostByToken(ctx context.Context, token, message string) Result {
	now := storageTime(s.clock)

	var updated *models.Post
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		post, err := s.findEditable(ctx, tx.Posts(), token, now)
		if err != nil {
			return err
		}
		post.Message = message
		post.UpdatedAt = now
		if err := tx.Posts().UpdateMessage(ctx, post); err != nil {
			return err
		}
		updated = post
		return nil
	})

	switch {
	case err == nil:
		s.logger.Info("post updated", zap.Uint("post_id", updated.ID))
		return Result{Kind: KindOK, Message: MsgUpdated, Post: updated}
	case errors.Is(err, errUnavailable):
		return Result{Kind: KindUnavailable, Message: MsgEditUnavailable}
	default:
		s.logger.Error("post update failed", zap.Error(err))
		return Result{Kind: KindFailed, Message: MsgSystemError}
	}
}

// DeletePostByToken soft deletes a deletable post. Both of its tokens die with it.
func (s *PostService) DeletePostByToken(ctx context.Context, token string) Result {
	now := storageTime(s.clock)

	var deleted *models.Post
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		post, err := s.findDeletable(ctx, tx.Posts(), token, now)
		if err != nil {
			return err
		}
		if err := tx.Posts().SoftDelete(ctx, post, now); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return errUnavailable
			}
			return err
		}
		deleted = post
		return nil
	})

	switch {
	case err == nil:
		s.logger.Info("post deleted", zap.Uint("post_id", deleted.ID))
		return Result{Kind: KindOK, Message: MsgDeleted, Post: deleted}
	case errors.Is(err, errUnavailable):
		return Result{Kind: KindUnavailable, Message: MsgDeleteUnavailable}
	default:
		s.logger.Error("post delete failed", zap.Error(err))
		return Result{Kind: KindFailed, Message: MsgSystemError}
	}
}

func (s *PostService) findEditable(ctx context.Context, posts repositories.PostRepository, token string, now time.Time) (*models.Post, error) {
	post, err := posts.FindByEditToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errUnavailable
		}
		return nil, fmt.Errorf("find post by edit token: %w", err)
	}
	if !CanEdit(post, now) {
		return nil, errUnavailable
	}
	return post, nil
}

func (s *PostService) findDeletable(ctx context.Context, posts repositories.PostRepository, token string, now time.Time) (*models.Post, error) {
	post, err := posts.FindByDeleteToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, errUnavailable
		}
		return nil, fmt.Errorf("find post by delete token: %w", err)
	}
	if !CanDelete(post, now) {
		return nil, errUnavailable
	}
	return post, nil
}

func (s *PostService) logLookupError(op string, err error) {
	if errors.Is(err, errUnavailable) {
		return
	}
	s.logger.Error("post lookup failed", zap.String("op", op), zap.Error(err))
}

// ListPosts returns one page of active posts, newest first. A store failure
// yields an empty page marked Degraded instead of an error.
func (s *PostService) ListPosts(ctx context.Context, page, pageSize int) PostsPage {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	result := PostsPage{
		Posts:        []models.Post{},
		Page:         page,
		PageSize:     pageSize,
		IPPostCounts: map[string]int64{},
	}

	posts, total, err := s.store.Posts().ListActive(ctx, page, pageSize)
	if err != nil {
		s.logger.Error("post list degraded to empty result", zap.Int("page", page), zap.Error(err))
		result.Degraded = true
		return result
	}
	if total == 0 {
		s.logger.Debug("post list is empty")
		return result
	}
	result.Posts = posts
	result.TotalCount = total

	ips := make([]string, 0, len(posts))
	seen := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		ip := p.Author.IPAddress
		if ip == "" {
			continue
		}
		if _, ok := seen[ip]; ok {
			continue
		}
		seen[ip] = struct{}{}
		ips = append(ips, ip)
	}
	counts, err := s.store.Posts().CountActiveByIPs(ctx, ips)
	if err != nil {
		s.logger.Warn("post counts by ip unavailable", zap.Error(err))
		return result
	}
	result.IPPostCounts = counts
	return result
}

// Stats returns aggregate counters; store failures degrade to zero.
func (s *PostService) Stats(ctx context.Context) Stats {
	var stats Stats
	if n, err := s.store.Posts().CountActive(ctx); err != nil {
		s.logger.Warn("count posts failed", zap.Error(err))
	} else {
		stats.PostCount = n
	}
	if n, err := s.store.Authors().Count(ctx); err != nil {
		s.logger.Warn("count authors failed", zap.Error(err))
	} else {
		stats.AuthorCount = n
	}
	return stats
}
