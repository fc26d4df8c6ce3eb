package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleStart shows the welcome message and available commands
func (b *Bot) handleStart(message *tgbotapi.Message) {
	required := b.locks.Threshold()
	text := fmt.Sprintf(`🤖 Chat Lock Bot is active!

When I am mentioned in a group chat, I lock the chat until the trigger message collects %d reactions.

Commands:
/start - Show this message
/status - Check whether the chat is locked
/unlock - Force unlock (admins only)
/set_reactions <n> - Set required reactions (admins only, current: %d)`, required, required)

	b.reply(message, text)
}

// handleStatus reports the lock state of the current chat
func (b *Bot) handleStatus(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	lock, ok := b.locks.Get(chatID)
	if !ok {
		b.reply(message, "🔓 This chat is not locked.")
		return
	}

	b.reply(message, fmt.Sprintf(
		"🔒 This chat is currently locked.\n"+
			"Trigger message ID: %d\n"+
			"Reactions: %d of %d required.",
		lock.TriggerMessageID, b.locks.TallyCount(chatID), b.locks.Threshold()))
}

// handleUnlockCommand force-unlocks the chat (admin only)
func (b *Bot) handleUnlockCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID

	if !b.isAdmin(chatID, userID) {
		b.reply(message, "❌ Only administrators can force an unlock.")
		return
	}

	_, outcome, err := b.unlockChat(ctx, chatID, userID, "admin")
	switch {
	case err != nil:
		b.reply(message, fmt.Sprintf("❌ The platform rejected the unlock: %v\nI will keep retrying.", err))
	case outcome == UnlockNotLocked:
		b.reply(message, "ℹ️ The chat is not currently locked.")
	case outcome == UnlockDefaulted:
		b.reply(message, "🔓 The chat has been force-unlocked. Original permissions were unknown, default permissions applied.")
	default:
		b.reply(message, "🔓 The chat has been force-unlocked and its original permissions restored.")
	}
}

// handleSetReactions sets the required reaction count (admin only). With no
// argument it reports the current value and offers a picker.
func (b *Bot) handleSetReactions(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID

	if !b.isAdmin(chatID, userID) {
		b.reply(message, "❌ Only administrators can change settings.")
		return
	}

	args := strings.TrimSpace(message.CommandArguments())
	if args == "" {
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Current required reactions: %d", b.locks.Threshold()))
		msg.ReplyMarkup = thresholdKeyboard()
		b.sendMessage(msg)
		return
	}

	n, err := strconv.Atoi(args)
	if err != nil || n < 1 {
		b.reply(message, "❌ Please provide a valid positive number.")
		return
	}

	if err := b.setThreshold(ctx, chatID, userID, n); err != nil {
		b.reply(message, fmt.Sprintf("❌ %v", err))
		return
	}
	b.reply(message, fmt.Sprintf("✅ Required reactions set to %d.", n))
}

// thresholdKeyboard builds the inline keyboard for the /set_reactions picker
func thresholdKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("1", "reactions:1"),
			tgbotapi.NewInlineKeyboardButtonData("2", "reactions:2"),
			tgbotapi.NewInlineKeyboardButtonData("3", "reactions:3"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("5", "reactions:5"),
			tgbotapi.NewInlineKeyboardButtonData("10", "reactions:10"),
			tgbotapi.NewInlineKeyboardButtonData("📝 Custom", "reactions:custom"),
		),
	)
}
