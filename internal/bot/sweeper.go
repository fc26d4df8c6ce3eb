package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// RunSweeper periodically reconciles lock state until ctx is cancelled: it
// retries platform unlocks that failed after the reaction threshold was met
// and drops reaction tallies that no longer belong to a locked chat. It
// never unlocks a chat whose tally is below the threshold.
func (b *Bot) RunSweeper(ctx context.Context, interval time.Duration) {
	b.logger.Info("Starting sweeper", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Sweeper stopped")
			return
		case <-ticker.C:
			b.sweep(ctx)
		}
	}
}

// sweep performs one reconciliation pass
func (b *Bot) sweep(ctx context.Context) {
	if removed := b.locks.PruneTallies(); removed > 0 {
		b.logger.Debug("Pruned stale reaction tallies", zap.Int("count", removed))
	}

	for _, pending := range b.locks.PendingUnlocks() {
		b.logger.Info("Retrying unlock", zap.Int64("chat_id", pending.ChatID))

		lock, outcome, err := b.unlockChat(ctx, pending.ChatID, 0, "sweeper")
		if err != nil {
			b.logger.Error("Unlock retry failed", zap.Error(err), zap.Int64("chat_id", pending.ChatID))
			continue
		}
		if outcome == UnlockNotLocked {
			continue
		}

		msg := tgbotapi.NewMessage(lock.ChatID, "🔓 The chat is unlocked!")
		msg.ReplyToMessageID = lock.TriggerMessageID
		b.sendMessage(msg)
	}
}
