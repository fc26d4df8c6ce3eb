package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"chatlock/internal/metrics"
)

// handleMessage processes a single message
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
		}
	}()

	if message.From == nil {
		return
	}
	userID := message.From.ID

	// Check if user is in a conversation
	b.statesMu.Lock()
	state, ok := b.states[userID]
	if ok && message.IsCommand() {
		// A new command interrupts the ongoing conversation
		delete(b.states, userID)
		state, ok = nil, false
	}
	b.statesMu.Unlock()

	if ok {
		b.handleConversation(ctx, message, state)
		return
	}

	// Handle commands
	if message.IsCommand() {
		switch message.Command() {
		case "start":
			b.handleStart(message)
		case "status":
			b.handleStatus(message)
		case "unlock":
			b.handleUnlockCommand(ctx, message)
		case "set_reactions":
			b.handleSetReactions(ctx, message)
		default:
			if message.Chat.IsPrivate() {
				b.reply(message, "Unknown command. Use /start to see available commands.")
				return
			}
			// In groups other bots' commands are common, so stay quiet -
			// but a locked chat treats them like any other message.
			if b.locks.IsLocked(message.Chat.ID) {
				b.enforceLock(ctx, message)
			}
		}
		return
	}

	if !message.Chat.IsGroup() && !message.Chat.IsSuperGroup() {
		return
	}

	// A mention (or a reply to the bot) triggers a lock; it is answered,
	// not deleted, even while the chat is locked.
	if IsMention(message, b.username) {
		b.handleMention(ctx, message)
		return
	}

	if b.locks.IsLocked(message.Chat.ID) {
		b.enforceLock(ctx, message)
	}
}

// handleEditedMessage enforces the lock on edited messages, so a message
// sent before the lock cannot be edited into fresh visible text.
func (b *Bot) handleEditedMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}
	if !message.Chat.IsGroup() && !message.Chat.IsSuperGroup() {
		return
	}

	if b.locks.IsLocked(message.Chat.ID) {
		b.enforceLock(ctx, message)
	}
}

// reply sends a text reply to the given message
func (b *Bot) reply(message *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyToMessageID = message.MessageID
	b.sendMessage(msg)
}

// sendMessage sends a message, logging delivery failures
func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if b.api == nil {
		return // For testing
	}

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("Failed to send message", zap.Error(err), zap.Int64("chat_id", msg.ChatID))
		metrics.PlatformErrorsTotal.WithLabelValues("send_message").Inc()
	}
}
