package bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"chatlock/internal/lockstate"
	"chatlock/internal/storage"
)

// telegramAPI is the slice of the Telegram client the bot calls.
// *tgbotapi.BotAPI satisfies it; tests substitute a fake.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api      telegramAPI
	db       storage.Storage
	locks    *lockstate.Registry
	logger   *zap.Logger
	username string
	selfID   int64
	states   map[int64]*ConversationState
	statesMu sync.Mutex
}

// ConversationState tracks the state of multi-step commands
// (currently only the custom value step of the /set_reactions picker)
type ConversationState struct {
	Command string
	Step    int
}
