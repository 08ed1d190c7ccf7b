package bot

import (
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"bookshelf/internal/collection"
	"bookshelf/internal/models"
)

const loadingText = "⏳ The library is still loading. Please try again in a moment."

// reply sends a plain text message
func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

// replyWithMarkup sends a message with an inline keyboard
func (b *Bot) replyWithMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	b.send(msg)
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if b.api == nil {
		return // For testing
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("Failed to send message", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
}

// errorText turns a store error into a message for the user
func errorText(err error) string {
	switch {
	case errors.Is(err, collection.ErrNotReady):
		return loadingText
	case errors.Is(err, collection.ErrNotFound):
		return "❌ No book with that id. Use /list to see ids."
	case errors.Is(err, collection.ErrInvalid):
		return fmt.Sprintf("❌ %v", err)
	case errors.Is(err, collection.ErrRemote):
		return "❌ Could not reach the library database. Nothing was changed."
	case errors.Is(err, collection.ErrCache):
		return "⚠️ Saved, but the local copy could not be written."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

var groupLabels = map[models.Group]string{
	models.GroupOwned:       "📚 Owned",
	models.GroupPassedAlong: "🎁 Passed along",
	models.GroupEbook:       "📱 E-books",
}

var statusLabels = map[models.ReadingStatus]string{
	models.ReadingUnstarted:  "Not started",
	models.ReadingInProgress: "Reading",
	models.ReadingFinished:   "Finished",
	models.ReadingExcerpted:  "Excerpted",
	models.ReadingPaused:     "Paused",
}

// itemLine renders one item for list output
func itemLine(item models.Item) string {
	var line strings.Builder
	line.WriteString(item.Title)
	if item.Author != "" {
		line.WriteString(" / ")
		line.WriteString(item.Author)
	}
	fmt.Fprintf(&line, " [%s] (id: %s)", statusLabels[item.ReadingStatus], item.ID)
	return line.String()
}

// parseTitleAuthor splits "Title / Author". The author part is optional.
func parseTitleAuthor(text string) (title, author string) {
	title, author, _ = strings.Cut(text, "/")
	return strings.TrimSpace(title), strings.TrimSpace(author)
}

func groupKeyboard() tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, g := range models.Groups {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(groupLabels[g], "group:"+string(g)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// statusKeyboard lays the reading statuses out two per row
func statusKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var currentRow []tgbotapi.InlineKeyboardButton
	for i, rs := range models.ReadingStatuses {
		button := tgbotapi.NewInlineKeyboardButtonData(statusLabels[rs], fmt.Sprintf("status:%s:%s", id, rs))
		currentRow = append(currentRow, button)
		if len(currentRow) == 2 || i == len(models.ReadingStatuses)-1 {
			rows = append(rows, currentRow)
			currentRow = nil
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
