package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	// Answer the callback query to remove the loading state
	if b.api != nil {
		b.api.Request(tgbotapi.NewCallback(query.ID, ""))
	}

	if query.Message == nil {
		return
	}

	if strings.HasPrefix(query.Data, "reactions:") {
		b.handleReactionsCallback(ctx, query)
	}
}

// handleReactionsCallback applies a threshold chosen from the picker, or
// starts the custom-value conversation.
func (b *Bot) handleReactionsCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	userID := query.From.ID

	// The picker message is visible to everyone in the chat, so the
	// admin check runs again on every click.
	if !b.isAdmin(chatID, userID) {
		b.sendMessage(tgbotapi.NewMessage(chatID, "❌ Only administrators can change settings."))
		return
	}

	value := strings.TrimPrefix(query.Data, "reactions:")
	if value == "custom" {
		b.statesMu.Lock()
		b.states[userID] = &ConversationState{Command: "set_reactions", Step: 1}
		b.statesMu.Unlock()

		b.sendMessage(tgbotapi.NewMessage(chatID, "📝 Please enter the required number of reactions:"))
		return
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return
	}

	if err := b.setThreshold(ctx, chatID, userID, n); err != nil {
		b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("❌ %v", err)))
		return
	}
	b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Required reactions set to %d.", n)))
}
