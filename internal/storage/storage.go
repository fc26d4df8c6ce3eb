package storage

import (
	"context"

	"chatlock/internal/models"
)

// Storage defines the interface for persisting moderation state
type Storage interface {
	// Lock operations

	// SaveLock records a chat as locked. Saving an already-locked chat
	// overwrites the previous record.
	SaveLock(ctx context.Context, lock models.ChatLock) error

	// ReleaseLock marks a chat as no longer locked. Releasing a chat that
	// was never locked is not an error.
	ReleaseLock(ctx context.Context, chatID int64) error

	// ActiveLocks returns all chats currently recorded as locked. Used to
	// reseed the in-memory registry after a restart.
	ActiveLocks(ctx context.Context) ([]models.ChatLock, error)

	// Settings operations

	// SaveRequiredReactions persists the process-wide reaction threshold.
	SaveRequiredReactions(ctx context.Context, count int) error

	// RequiredReactions returns the persisted threshold. ok is false when
	// no value has ever been saved.
	RequiredReactions(ctx context.Context) (count int, ok bool, err error)

	// Audit operations
	RecordModerationEvent(ctx context.Context, event models.ModerationEvent) error
	RecentModerationEvents(ctx context.Context, limit int) ([]models.ModerationEvent, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
