package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Start runs the bot in polling mode and blocks until ctx is cancelled.
// Updates are fetched through the raw getUpdates endpoint so that reaction
// update kinds are delivered (see reactions.go).
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot in polling mode")

	// Remove webhook (if any was set previously)
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}

	b.logger.Info("Bot started successfully. Waiting for updates...")

	offset := 0
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Polling stopped")
			return nil
		default:
		}

		updates, err := b.fetchUpdates(offset)
		if err != nil {
			b.logger.Error("Failed to fetch updates", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			b.HandleUpdate(update)
		}
	}
}

// StartWebhook sets up the bot to receive updates via webhook
func (b *Bot) StartWebhook(webhookURL string) error {
	b.logger.Info("Setting up webhook", zap.String("webhook_url", webhookURL))

	webhookConfig, err := tgbotapi.NewWebhook(webhookURL + "/telegram-webhook")
	if err != nil {
		return err
	}
	webhookConfig.MaxConnections = 40
	// Reaction updates are only delivered when explicitly requested.
	webhookConfig.AllowedUpdates = allowedUpdates

	if _, err := b.api.Request(webhookConfig); err != nil {
		b.logger.Error("Failed to set webhook", zap.Error(err), zap.String("webhook_url", webhookURL))
		return err
	}

	// Get webhook info to verify
	info, err := b.api.GetWebhookInfo()
	if err != nil {
		b.logger.Warn("Failed to get webhook info", zap.Error(err))
	} else {
		b.logger.Info("Webhook set successfully",
			zap.String("url", info.URL),
			zap.Int("pending_updates", info.PendingUpdateCount),
		)
	}

	b.logger.Info("Bot configured for webhook mode")
	return nil
}

// HandleUpdate processes a single update from polling or webhook
func (b *Bot) HandleUpdate(update Update) {
	ctx := context.Background()

	switch {
	case update.MessageReaction != nil:
		b.handleMessageReaction(ctx, update.MessageReaction)
	case update.MessageReactionCount != nil:
		b.handleMessageReactionCount(ctx, update.MessageReactionCount)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.EditedMessage != nil:
		b.handleEditedMessage(ctx, update.EditedMessage)
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}
