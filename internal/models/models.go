package models

import "time"

// ChatLock represents a chat the bot has locked
type ChatLock struct {
	ChatID           int64
	TriggerMessageID int
	LockedBy         int64
	LockedAt         time.Time
	// Permissions holds the JSON-encoded permission set captured at lock
	// time, empty when the platform did not report one.
	Permissions string
}

// ModerationEvent is an audit record of a single moderation action
type ModerationEvent struct {
	Time   time.Time
	ChatID int64
	UserID int64
	Action string
	Detail string
}

// Moderation event actions
const (
	ActionLock            = "lock"
	ActionUnlock          = "unlock"
	ActionDeleteMessage   = "delete_message"
	ActionRestrictUser    = "restrict_user"
	ActionThresholdChange = "threshold_change"
)
