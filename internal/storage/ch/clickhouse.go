package ch

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"chatlock/internal/models"

	"github.com/ClickHouse/clickhouse-go/v2"
)

type ClickHouseDB struct {
	conn clickhouse.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(host string, port int, database, user, password string, useTLS bool) (*ClickHouseDB, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
	}

	// Configure TLS if enabled
	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test the connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Initialize is a no-op - tables are managed via migrations
func (db *ClickHouseDB) Initialize(ctx context.Context) error {
	// Tables are managed via migrations (see migrations/ directory)
	// This method is kept for interface compatibility
	return nil
}

// SaveLock records a chat as locked. chat_locks is a ReplacingMergeTree
// keyed by chat_id, so a later row supersedes the previous one.
func (db *ClickHouseDB) SaveLock(ctx context.Context, lock models.ChatLock) error {
	err := db.conn.Exec(ctx, `
		INSERT INTO chat_locks (chat_id, trigger_message_id, locked_by, locked_at, permissions, active, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, now64(3))`,
		lock.ChatID, int64(lock.TriggerMessageID), lock.LockedBy, lock.LockedAt, lock.Permissions)
	if err != nil {
		return fmt.Errorf("failed to save lock: %w", err)
	}
	return nil
}

// ReleaseLock writes a tombstone row for the chat
func (db *ClickHouseDB) ReleaseLock(ctx context.Context, chatID int64) error {
	err := db.conn.Exec(ctx, `
		INSERT INTO chat_locks (chat_id, trigger_message_id, locked_by, locked_at, permissions, active, updated_at)
		VALUES (?, 0, 0, toDateTime(0), '', 0, now64(3))`,
		chatID)
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// ActiveLocks returns all chats currently recorded as locked
func (db *ClickHouseDB) ActiveLocks(ctx context.Context) ([]models.ChatLock, error) {
	rows, err := db.conn.Query(ctx, `
		SELECT chat_id, trigger_message_id, locked_by, locked_at, permissions
		FROM chat_locks FINAL
		WHERE active = 1
		ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active locks: %w", err)
	}
	defer rows.Close()

	var locks []models.ChatLock
	for rows.Next() {
		var (
			lock      models.ChatLock
			triggerID int64
		)
		if err := rows.Scan(&lock.ChatID, &triggerID, &lock.LockedBy, &lock.LockedAt, &lock.Permissions); err != nil {
			return nil, fmt.Errorf("failed to scan lock: %w", err)
		}
		lock.TriggerMessageID = int(triggerID)
		locks = append(locks, lock)
	}
	return locks, nil
}

// SaveRequiredReactions persists the reaction threshold
func (db *ClickHouseDB) SaveRequiredReactions(ctx context.Context, count int) error {
	err := db.conn.Exec(ctx, `
		INSERT INTO bot_settings (name, value, updated_at)
		VALUES ('required_reactions', ?, now64(3))`,
		int32(count))
	if err != nil {
		return fmt.Errorf("failed to save required reactions: %w", err)
	}
	return nil
}

// RequiredReactions returns the persisted threshold, ok=false when unset
func (db *ClickHouseDB) RequiredReactions(ctx context.Context) (int, bool, error) {
	rows, err := db.conn.Query(ctx, `
		SELECT value FROM bot_settings FINAL
		WHERE name = 'required_reactions'`)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get required reactions: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, false, nil
	}
	var value int32
	if err := rows.Scan(&value); err != nil {
		return 0, false, fmt.Errorf("failed to scan required reactions: %w", err)
	}
	return int(value), true, nil
}

// RecordModerationEvent appends an audit record
func (db *ClickHouseDB) RecordModerationEvent(ctx context.Context, event models.ModerationEvent) error {
	eventTime := event.Time
	if eventTime.IsZero() {
		eventTime = time.Now()
	}
	err := db.conn.Exec(ctx, `
		INSERT INTO moderation_events (event_time, chat_id, user_id, action, detail)
		VALUES (?, ?, ?, ?, ?)`,
		eventTime, event.ChatID, event.UserID, event.Action, event.Detail)
	if err != nil {
		return fmt.Errorf("failed to record moderation event: %w", err)
	}
	return nil
}

// RecentModerationEvents returns the last N audit records
func (db *ClickHouseDB) RecentModerationEvents(ctx context.Context, limit int) ([]models.ModerationEvent, error) {
	rows, err := db.conn.Query(ctx, `
		SELECT event_time, chat_id, user_id, action, detail
		FROM moderation_events
		ORDER BY event_time DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get moderation events: %w", err)
	}
	defer rows.Close()

	var events []models.ModerationEvent
	for rows.Next() {
		var event models.ModerationEvent
		if err := rows.Scan(&event.Time, &event.ChatID, &event.UserID, &event.Action, &event.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan moderation event: %w", err)
		}
		events = append(events, event)
	}
	return events, nil
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
