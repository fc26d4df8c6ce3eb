package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// IsMention reports whether a message addresses the bot: an @username
// mention in the text or caption, or a reply to one of the bot's messages.
func IsMention(message *tgbotapi.Message, botUsername string) bool {
	if message == nil || botUsername == "" {
		return false
	}

	text := message.Text
	if text == "" {
		text = message.Caption
	}
	if strings.Contains(text, "@"+botUsername) {
		return true
	}

	reply := message.ReplyToMessage
	return reply != nil && reply.From != nil && reply.From.UserName == botUsername
}

// handleMention locks the chat when the bot is addressed
func (b *Bot) handleMention(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if b.locks.IsLocked(chatID) {
		b.reply(message, "⚠️ The chat is already locked!")
		return
	}

	if err := b.lockChat(ctx, chatID, message.MessageID, message.From.ID); err != nil {
		b.logger.Error("Failed to lock chat", zap.Error(err), zap.Int64("chat_id", chatID))
		return
	}

	b.reply(message, fmt.Sprintf(
		"🔒 Chat locked! This message needs %d reactions to unlock the chat.\n"+
			"All new messages will be deleted until then.",
		b.locks.Threshold()))
}
