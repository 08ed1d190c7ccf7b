package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookshelf/internal/collection"
	"bookshelf/internal/models"
)

// handleConversation processes multi-step conversations
func (b *Bot) handleConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	switch state.Command {
	case convAdd:
		b.handleAddConversation(ctx, message, state)
	}

	// Clean up completed conversations
	if state.Step == stepDone {
		b.clearState(message.From.ID)
	}
}

// handleAddConversation handles the add book multi-step process
func (b *Bot) handleAddConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	switch state.Step {
	case stepGroup: // Waiting for a keyboard choice
		b.replyWithMarkup(message.Chat.ID, "Please pick a group first:", groupKeyboard())

	case stepTitle: // Waiting for "Title / Author"
		title, author := parseTitleAuthor(message.Text)
		if title == "" {
			b.reply(message.Chat.ID, "Please send the title, optionally followed by / and the author.\n\nExample: Dune / Frank Herbert")
			return
		}

		g := models.Group(state.Data["group"])
		item, created, err := b.library.Create(ctx, g, models.Item{Title: title, Author: author}, collection.CreateOptions{})
		switch {
		case err != nil:
			b.logger.Warn("Failed to add book", zap.String("title", title), zap.Error(err))
			b.reply(message.Chat.ID, errorText(err))
		case !created:
			b.reply(message.Chat.ID, fmt.Sprintf("ℹ️ %s is already in your collection.", title))
		default:
			b.reply(message.Chat.ID, fmt.Sprintf("✅ Added to %s\n%s", groupLabels[g], itemLine(item)))
		}

		state.Step = stepDone
	}
}
