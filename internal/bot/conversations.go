package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleConversation processes multi-step conversations. A step reports
// whether the conversation finished; completed conversations are removed
// from the state map under the lock. The state itself is never written
// after it is published into the map, so handlers running concurrently
// (webhook mode) only ever synchronize on statesMu.
func (b *Bot) handleConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	done := true
	switch state.Command {
	case "set_reactions":
		done = b.handleSetReactionsConversation(ctx, message, state)
	}

	if done {
		b.statesMu.Lock()
		delete(b.states, message.From.ID)
		b.statesMu.Unlock()
	}
}

// handleSetReactionsConversation waits for the custom threshold value after
// the "Custom" picker button was pressed. Returns true when the
// conversation is finished.
func (b *Bot) handleSetReactionsConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) bool {
	switch state.Step {
	case 1: // Waiting for the number
		n, err := strconv.Atoi(strings.TrimSpace(message.Text))
		if err != nil || n < 1 {
			b.reply(message, "❌ Please provide a valid positive number.")
			return false
		}

		if err := b.setThreshold(ctx, message.Chat.ID, message.From.ID, n); err != nil {
			b.reply(message, fmt.Sprintf("❌ %v", err))
			return true
		}

		b.reply(message, fmt.Sprintf("✅ Required reactions set to %d.", n))
	}
	return true
}
