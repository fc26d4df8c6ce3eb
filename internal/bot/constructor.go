package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"chatlock/internal/lockstate"
	"chatlock/internal/storage"
)

// NewBot creates a new Telegram bot
func NewBot(token string, db storage.Storage, locks *lockstate.Registry, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created",
		zap.String("bot_username", api.Self.UserName),
		zap.Int("required_reactions", locks.Threshold()),
	)

	return &Bot{
		api:      api,
		db:       db,
		locks:    locks,
		logger:   logger,
		username: api.Self.UserName,
		selfID:   api.Self.ID,
		states:   make(map[int64]*ConversationState),
	}, nil
}
