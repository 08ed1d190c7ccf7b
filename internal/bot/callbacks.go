package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bookshelf/internal/models"
)

// handleGroupCallback records the group chosen for /add
func (b *Bot) handleGroupCallback(query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	state := b.state(query.From.ID)
	if state == nil || state.Command != convAdd || state.Step != stepGroup {
		return
	}

	g, ok := models.ParseGroup(strings.TrimPrefix(query.Data, "group:"))
	if !ok {
		return
	}

	b.setState(query.From.ID, &ConversationState{
		Command: convAdd,
		Step:    stepTitle,
		Data:    map[string]string{"group": string(g)},
	})

	b.reply(chatID, fmt.Sprintf("%s. Now send the title and author.\n\nExample: Dune / Frank Herbert", groupLabels[g]))
}

// handleStatusCallback applies a reading status picked from the /status keyboard
func (b *Bot) handleStatusCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	rest := strings.TrimPrefix(query.Data, "status:")
	sep := strings.LastIndex(rest, ":")
	if sep <= 0 {
		return
	}
	id, token := rest[:sep], rest[sep+1:]

	status, ok := models.ParseReadingStatus(token)
	if !ok {
		return
	}
	if err := b.library.SetReadingStatus(ctx, id, status); err != nil {
		b.reply(chatID, errorText(err))
		return
	}

	item, _ := b.library.Find(id)
	b.reply(chatID, fmt.Sprintf("✅ %s: %s", item.Title, statusLabels[status]))
}

// handleResetCallback deletes everything once confirmed
func (b *Bot) handleResetCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	if query.Data != "reset:yes" {
		b.reply(chatID, "Reset cancelled.")
		return
	}

	if err := b.library.ResetAll(ctx); err != nil {
		b.reply(chatID, errorText(err))
		return
	}
	b.reply(chatID, "🗑 All books deleted.")
}
