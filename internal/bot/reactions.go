package bot

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Telegram delivers reaction changes as dedicated update kinds that the v5
// client predates, so the wire structures live here and updates are fetched
// through the raw getUpdates endpoint.

// allowedUpdates must name the reaction kinds explicitly or Telegram will
// not deliver them. Reaction updates also require the bot to be an
// administrator of the chat.
var allowedUpdates = []string{
	"message",
	"edited_message",
	"callback_query",
	"message_reaction",
	"message_reaction_count",
}

// Update extends the client's update with the reaction update kinds
type Update struct {
	tgbotapi.Update
	MessageReaction      *MessageReactionUpdated      `json:"message_reaction,omitempty"`
	MessageReactionCount *MessageReactionCountUpdated `json:"message_reaction_count,omitempty"`
}

// MessageReactionUpdated is a change of a user's reactions on a message
type MessageReactionUpdated struct {
	Chat        tgbotapi.Chat  `json:"chat"`
	MessageID   int            `json:"message_id"`
	User        *tgbotapi.User `json:"user,omitempty"`
	ActorChat   *tgbotapi.Chat `json:"actor_chat,omitempty"`
	Date        int64          `json:"date"`
	OldReaction []ReactionType `json:"old_reaction"`
	NewReaction []ReactionType `json:"new_reaction"`
}

// MessageReactionCountUpdated carries anonymous reaction totals for a message
type MessageReactionCountUpdated struct {
	Chat      tgbotapi.Chat   `json:"chat"`
	MessageID int             `json:"message_id"`
	Date      int64           `json:"date"`
	Reactions []ReactionCount `json:"reactions"`
}

// ReactionType identifies one reaction (emoji or custom emoji)
type ReactionType struct {
	Type          string `json:"type"`
	Emoji         string `json:"emoji,omitempty"`
	CustomEmojiID string `json:"custom_emoji_id,omitempty"`
}

// ReactionCount is the total for one reaction type
type ReactionCount struct {
	Type       ReactionType `json:"type"`
	TotalCount int          `json:"total_count"`
}

// fetchUpdates long-polls getUpdates with the explicit allowed_updates list
func (b *Bot) fetchUpdates(offset int) ([]Update, error) {
	params := tgbotapi.Params{}
	params.AddNonZero("offset", offset)
	params.AddNonZero("timeout", 60)
	if err := params.AddInterface("allowed_updates", allowedUpdates); err != nil {
		return nil, fmt.Errorf("failed to encode allowed_updates: %w", err)
	}

	resp, err := b.api.MakeRequest("getUpdates", params)
	if err != nil {
		return nil, fmt.Errorf("getUpdates failed: %w", err)
	}

	var updates []Update
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return nil, fmt.Errorf("failed to decode updates: %w", err)
	}
	return updates, nil
}

// handleMessageReaction updates the reactor tally from a per-user reaction
// change and unlocks the chat when the threshold is reached.
func (b *Bot) handleMessageReaction(ctx context.Context, reaction *MessageReactionUpdated) {
	if reaction.User == nil {
		// Anonymous reactors surface through message_reaction_count instead
		return
	}

	added := len(reaction.NewReaction) > 0
	count, trigger := b.locks.ApplyReaction(reaction.Chat.ID, reaction.MessageID, reaction.User.ID, added)
	if !trigger {
		return
	}

	b.logger.Debug("Reaction tally updated",
		zap.Int64("chat_id", reaction.Chat.ID),
		zap.Int64("user_id", reaction.User.ID),
		zap.Bool("added", added),
		zap.Int("count", count),
	)

	b.maybeUnlockByReactions(ctx, reaction.Chat.ID, count)
}

// handleMessageReactionCount records platform-reported totals (anonymous
// reactions arrive only this way, with some delay).
func (b *Bot) handleMessageReactionCount(ctx context.Context, counts *MessageReactionCountUpdated) {
	total := 0
	for _, r := range counts.Reactions {
		total += r.TotalCount
	}

	count, trigger := b.locks.SetReportedCount(counts.Chat.ID, counts.MessageID, total)
	if !trigger {
		return
	}

	b.maybeUnlockByReactions(ctx, counts.Chat.ID, count)
}

// maybeUnlockByReactions unlocks the chat once the trigger message's tally
// reaches the threshold. The registry entry is claimed atomically inside
// unlockChat, so concurrent reaction updates unlock at most once.
func (b *Bot) maybeUnlockByReactions(ctx context.Context, chatID int64, count int) {
	if count < b.locks.Threshold() {
		return
	}

	lock, outcome, err := b.unlockChat(ctx, chatID, 0, "reactions")
	if err != nil {
		// Flagged for the sweeper to retry
		b.logger.Error("Failed to unlock chat after reaching threshold",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
		return
	}
	if outcome == UnlockNotLocked {
		// Raced with an admin /unlock
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("🔓 %d reactions reached - the chat is unlocked!", count))
	msg.ReplyToMessageID = lock.TriggerMessageID
	b.sendMessage(msg)
}
