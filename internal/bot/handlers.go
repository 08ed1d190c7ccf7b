package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleMessage processes a single message
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			b.reply(message.Chat.ID, "An error occurred while processing your request. Please try again.")
		}
	}()

	userID := message.From.ID

	// Any command interrupts an ongoing conversation
	if state := b.state(userID); state != nil {
		if state.Step == stepDone || message.IsCommand() {
			b.clearState(userID)
		} else {
			b.handleConversation(ctx, message, state)
			return
		}
	}

	if !message.IsCommand() {
		b.reply(message.Chat.ID, "Use /start to see available commands.")
		return
	}

	switch message.Command() {
	case "start", "help":
		b.handleStart(message)
	case "list":
		b.handleList(message)
	case "add":
		b.handleAddStart(message)
	case "status":
		b.handleStatus(message)
	case "country":
		b.handleCountry(ctx, message)
	case "delete":
		b.handleDelete(ctx, message)
	case "stats":
		b.handleStats(message)
	case "reset":
		b.handleReset(message)
	default:
		b.reply(message.Chat.ID, "Unknown command. Use /start to see available commands.")
	}
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	// Answer the callback query to remove loading state
	if b.api != nil {
		if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
			b.logger.Debug("Failed to answer callback query", zap.Error(err))
		}
	}
	if query.Message == nil {
		return
	}

	data := query.Data
	switch {
	case strings.HasPrefix(data, "group:"):
		b.handleGroupCallback(query)
	case strings.HasPrefix(data, "status:"):
		b.handleStatusCallback(ctx, query)
	case strings.HasPrefix(data, "reset:"):
		b.handleResetCallback(ctx, query)
	}
}

func (b *Bot) state(userID int64) *ConversationState {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	return b.states[userID]
}

func (b *Bot) setState(userID int64, state *ConversationState) {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	b.states[userID] = state
}

func (b *Bot) clearState(userID int64) {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	delete(b.states, userID)
}
