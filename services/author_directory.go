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

// ErrEmptyEmail is returned when an author is requested without an email.
var ErrEmptyEmail = errors.New("author email is empty")

// AuthorDirectory resolves authors by email, creating them on first use.
type AuthorDirectory struct {
	repo   repositories.AuthorRepository
	clock  Clock
	logger *zap.Logger
}

// NewAuthorDirectory creates an AuthorDirectory over repo.
func NewAuthorDirectory(repo repositories.AuthorRepository, clock Clock, logger *zap.Logger) *AuthorDirectory {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthorDirectory{repo: repo, clock: clock, logger: logger}
}

// WithRepository returns a copy bound to repo, typically a transaction scoped one.
func (d *AuthorDirectory) WithRepository(repo repositories.AuthorRepository) *AuthorDirectory {
	return &AuthorDirectory{repo: repo, clock: d.clock, logger: d.logger}
}

// FindByEmail returns the author or nil when absent. Lookup failures are logged and reported as absent.
func (d *AuthorDirectory) FindByEmail(ctx context.Context, email string) *models.Author {
	if email == "" {
		return nil
	}
	author, err := d.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			d.logger.Error("author lookup failed", zap.Error(err))
		}
		return nil
	}
	return author
}

// FindOrCreate returns the author for email with name and ip applied in memory.
// A new author is inserted immediately; when a concurrent writer inserted the
// same email first, the winner's row is re-read and returned instead.
func (d *AuthorDirectory) FindOrCreate(ctx context.Context, email, name, ip string) (*models.Author, error) {
	if email == "" {
		return nil, ErrEmptyEmail
	}
	now := storageTime(d.clock)

	author, err := d.repo.FindByEmail(ctx, email)
	if err == nil {
		refreshAuthor(author, name, ip, now)
		return author, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("find author: %w", err)
	}

	author = &models.Author{
		Email:     email,
		Name:      name,
		IPAddress: ip,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = d.repo.Create(ctx, author)
	if err == nil {
		return author, nil
	}
	if !errors.Is(err, repositories.ErrDuplicateEmail) {
		return nil, err
	}

	d.logger.Info("author insert lost a race, re-reading winner")
	winner, err := d.repo.FindByEmailLocked(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("resolve author race: %w", err)
	}
	refreshAuthor(winner, name, ip, now)
	return winner, nil
}

func refreshAuthor(author *models.Author, name, ip string, now time.Time) {
	author.Name = name
	author.IPAddress = ip
	author.UpdatedAt = now
}
