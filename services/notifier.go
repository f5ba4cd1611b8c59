package services

import (
	"context"

	"github.com/cppla/storyvault/models"
)

// Notifier is told about every post after its creation has committed.
type Notifier interface {
	NotifyPostCreated(ctx context.Context, post *models.Post, author *models.Author) error
}
