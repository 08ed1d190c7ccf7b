package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookshelf/internal/collection"
	"bookshelf/internal/models"
)

// Library is the part of the collection store the bot and the HTTP API use
type Library interface {
	Hydrated() bool
	Collection() models.Collection
	Find(id string) (models.Item, bool)
	Create(ctx context.Context, g models.Group, draft models.Item, opts collection.CreateOptions) (models.Item, bool, error)
	Update(ctx context.Context, item models.Item) error
	Delete(ctx context.Context, id string) error
	SetReadingStatus(ctx context.Context, id string, status models.ReadingStatus) error
	SetCountry(ctx context.Context, id, code string) error
	ResetAll(ctx context.Context) error
}

// sender is the subset of tgbotapi.BotAPI used to talk to Telegram
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api          sender
	poller       *tgbotapi.BotAPI
	token        string
	library      Library
	allowedUsers map[int64]bool
	states       map[int64]*ConversationState
	statesMu     sync.Mutex
	logger       *zap.Logger
}

// ConversationState tracks the state of multi-step commands
type ConversationState struct {
	Command string
	Step    int
	Data    map[string]string
}

// Conversation commands and the step that ends them
const (
	convAdd   = "add"
	stepGroup = 1
	stepTitle = 2
	stepDone  = -1
)
