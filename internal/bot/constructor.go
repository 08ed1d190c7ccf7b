package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// NewBot creates a new Telegram bot
func NewBot(token string, library Library, allowedUserIDs []int64, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	b := newBot(api, token, library, allowedUserIDs, logger)
	b.poller = api
	return b, nil
}

func newBot(api sender, token string, library Library, allowedUserIDs []int64, logger *zap.Logger) *Bot {
	allowedUsers := make(map[int64]bool, len(allowedUserIDs))
	for _, id := range allowedUserIDs {
		allowedUsers[id] = true
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Bot{
		api:          api,
		token:        token,
		library:      library,
		allowedUsers: allowedUsers,
		states:       make(map[int64]*ConversationState),
		logger:       logger.Named("bot"),
	}
}
