package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"chatlock/internal/lockstate"
	"chatlock/internal/metrics"
	"chatlock/internal/models"
)

// UnlockOutcome tells a caller what an unlock attempt found, so failures
// can be reported to admins instead of silently swallowed.
type UnlockOutcome int

const (
	// UnlockNotLocked means the chat had no lock to release
	UnlockNotLocked UnlockOutcome = iota
	// UnlockRestored means the permissions captured at lock time were restored
	UnlockRestored
	// UnlockDefaulted means no captured permissions existed and the
	// hardcoded defaults were applied instead
	UnlockDefaulted
)

// defaultPermissions is applied on unlock when no permission set was
// captured at lock time.
func defaultPermissions() *tgbotapi.ChatPermissions {
	return &tgbotapi.ChatPermissions{
		CanSendMessages:       true,
		CanSendMediaMessages:  true,
		CanSendPolls:          true,
		CanSendOtherMessages:  true,
		CanAddWebPagePreviews: true,
		CanInviteUsers:        true,
	}
}

// lockChat captures the chat's current permissions, replaces them with a
// fully restrictive set and records the lock. A platform error aborts the
// lock and is returned; the chat may be left in whatever partial state the
// platform produced.
func (b *Bot) lockChat(ctx context.Context, chatID int64, triggerMessageID int, lockedBy int64) error {
	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		metrics.PlatformErrorsTotal.WithLabelValues("get_chat").Inc()
		return fmt.Errorf("failed to get chat %d: %w", chatID, err)
	}

	if _, err := b.api.Request(tgbotapi.SetChatPermissionsConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: chatID},
		Permissions: &tgbotapi.ChatPermissions{},
	}); err != nil {
		metrics.PlatformErrorsTotal.WithLabelValues("set_chat_permissions").Inc()
		return fmt.Errorf("failed to restrict chat %d: %w", chatID, err)
	}

	lock := lockstate.Lock{
		ChatID:           chatID,
		TriggerMessageID: triggerMessageID,
		LockedBy:         lockedBy,
		LockedAt:         time.Now(),
		Permissions:      chat.Permissions,
	}
	b.locks.LockChat(lock)
	metrics.LocksTotal.Inc()

	b.persistLock(ctx, lock)
	b.audit(ctx, chatID, lockedBy, models.ActionLock, fmt.Sprintf("trigger message %d", triggerMessageID))

	b.logger.Info("Locked chat",
		zap.Int64("chat_id", chatID),
		zap.Int("trigger_message_id", triggerMessageID),
	)
	return nil
}

// unlockChat restores the chat's permissions and clears the lock. The
// registry entry is claimed first so concurrent unlock attempts cannot both
// proceed; on a platform error the lock is put back flagged for the
// sweeper to retry.
func (b *Bot) unlockChat(ctx context.Context, chatID, unlockedBy int64, cause string) (lockstate.Lock, UnlockOutcome, error) {
	lock, ok := b.locks.UnlockChat(chatID)
	if !ok {
		return lockstate.Lock{}, UnlockNotLocked, nil
	}

	permissions := lock.Permissions
	outcome := UnlockRestored
	if permissions == nil {
		permissions = defaultPermissions()
		outcome = UnlockDefaulted
	}

	if _, err := b.api.Request(tgbotapi.SetChatPermissionsConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: chatID},
		Permissions: permissions,
	}); err != nil {
		metrics.PlatformErrorsTotal.WithLabelValues("set_chat_permissions").Inc()
		b.locks.LockChat(lock)
		b.locks.MarkUnlockPending(chatID)
		return lock, outcome, fmt.Errorf("failed to restore permissions in chat %d: %w", chatID, err)
	}

	metrics.UnlocksTotal.WithLabelValues(cause).Inc()

	if err := b.db.ReleaseLock(ctx, chatID); err != nil {
		b.logger.Error("Failed to release persisted lock", zap.Error(err), zap.Int64("chat_id", chatID))
	}
	b.audit(ctx, chatID, unlockedBy, models.ActionUnlock, cause)

	b.logger.Info("Unlocked chat", zap.Int64("chat_id", chatID), zap.String("cause", cause))
	return lock, outcome, nil
}

// isAdmin checks whether the user is an administrator or the owner of the
// chat. Any lookup failure counts as "not admin".
func (b *Bot) isAdmin(chatID, userID int64) bool {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		b.logger.Warn("Failed to check admin status",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", userID),
		)
		metrics.PlatformErrorsTotal.WithLabelValues("get_chat_member").Inc()
		return false
	}
	return member.IsAdministrator() || member.IsCreator()
}

// enforceLock handles an ordinary message in a locked chat: the message is
// deleted and the sender restricted. Both steps are independent and
// best-effort; admins and the bot itself are exempt.
func (b *Bot) enforceLock(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID

	if userID == b.selfID || b.isAdmin(chatID, userID) {
		return
	}

	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, message.MessageID)); err != nil {
		b.logger.Error("Failed to delete message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", message.MessageID),
		)
		metrics.PlatformErrorsTotal.WithLabelValues("delete_message").Inc()
	} else {
		metrics.DeletedMessagesTotal.Inc()
		b.audit(ctx, chatID, userID, models.ActionDeleteMessage, fmt.Sprintf("message %d", message.MessageID))
		b.logger.Info("Deleted message in locked chat",
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", userID),
		)
	}

	b.restrictUser(ctx, chatID, userID)
}

// restrictUser applies an indefinite send-restriction to a user who posted
// in a locked chat. The restriction holds until an admin lifts it.
func (b *Bot) restrictUser(ctx context.Context, chatID, userID int64) {
	if _, err := b.api.Request(tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		Permissions:      &tgbotapi.ChatPermissions{CanSendMessages: false},
	}); err != nil {
		b.logger.Error("Failed to restrict user",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", userID),
		)
		metrics.PlatformErrorsTotal.WithLabelValues("restrict_chat_member").Inc()
		return
	}

	metrics.RestrictedUsersTotal.Inc()
	b.audit(ctx, chatID, userID, models.ActionRestrictUser, "posted in locked chat")
	b.logger.Info("Restricted user in locked chat",
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", userID),
	)
}

// setThreshold updates the reaction threshold and persists it
func (b *Bot) setThreshold(ctx context.Context, chatID, userID int64, n int) error {
	if err := b.locks.SetThreshold(n); err != nil {
		return err
	}
	if err := b.db.SaveRequiredReactions(ctx, n); err != nil {
		b.logger.Error("Failed to persist required reactions", zap.Error(err), zap.Int("value", n))
	}
	b.audit(ctx, chatID, userID, models.ActionThresholdChange, fmt.Sprintf("%d", n))
	b.logger.Info("Required reactions changed", zap.Int("value", n), zap.Int64("user_id", userID))
	return nil
}

// persistLock saves the lock to storage so it survives a restart
func (b *Bot) persistLock(ctx context.Context, lock lockstate.Lock) {
	record := models.ChatLock{
		ChatID:           lock.ChatID,
		TriggerMessageID: lock.TriggerMessageID,
		LockedBy:         lock.LockedBy,
		LockedAt:         lock.LockedAt,
	}
	if lock.Permissions != nil {
		raw, err := json.Marshal(lock.Permissions)
		if err != nil {
			b.logger.Warn("Failed to encode captured permissions", zap.Error(err))
		} else {
			record.Permissions = string(raw)
		}
	}

	if err := b.db.SaveLock(ctx, record); err != nil {
		b.logger.Error("Failed to persist lock", zap.Error(err), zap.Int64("chat_id", lock.ChatID))
	}
}

// audit appends a moderation event to storage
func (b *Bot) audit(ctx context.Context, chatID, userID int64, action, detail string) {
	event := models.ModerationEvent{
		Time:   time.Now(),
		ChatID: chatID,
		UserID: userID,
		Action: action,
		Detail: detail,
	}
	if err := b.db.RecordModerationEvent(ctx, event); err != nil {
		b.logger.Warn("Failed to record moderation event", zap.Error(err), zap.String("action", action))
	}
}
