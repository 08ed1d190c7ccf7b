package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bookshelf/internal/models"
	"bookshelf/internal/stats"
)

// maxListed caps the items shown per group in /list
const maxListed = 30

// handleStart shows welcome message and available commands
func (b *Bot) handleStart(message *tgbotapi.Message) {
	text := `Welcome to Bookshelf! 📚

Available commands:
/list [owned|passed_along|ebook] - Show your books
/add - Add a book
/status <id> - Change reading status
/country <id> <code> - Set country of origin
/delete <id> - Remove a book
/stats - Collection statistics
/reset - Delete everything`

	b.reply(message.Chat.ID, text)
}

// handleList shows one group or the whole collection, newest first
func (b *Bot) handleList(message *tgbotapi.Message) {
	if !b.library.Hydrated() {
		b.reply(message.Chat.ID, loadingText)
		return
	}

	groups := models.Groups
	if arg := strings.TrimSpace(message.CommandArguments()); arg != "" {
		g, ok := models.ParseGroup(arg)
		if !ok {
			b.reply(message.Chat.ID, "Unknown group. Use owned, passed_along or ebook.")
			return
		}
		groups = []models.Group{g}
	}

	c := b.library.Collection()
	if c.Empty() {
		b.reply(message.Chat.ID, "Your library is empty. Add a book with /add")
		return
	}

	var text strings.Builder
	for _, g := range groups {
		items := c.Group(g)
		fmt.Fprintf(&text, "%s (%d)\n", groupLabels[g], len(items))
		for i, item := range items {
			if i == maxListed {
				fmt.Fprintf(&text, "...and %d more\n", len(items)-maxListed)
				break
			}
			fmt.Fprintf(&text, "%d. %s\n", i+1, itemLine(item))
		}
		text.WriteString("\n")
	}
	b.reply(message.Chat.ID, strings.TrimSpace(text.String()))
}

// handleAddStart initiates the add book conversation
func (b *Bot) handleAddStart(message *tgbotapi.Message) {
	if !b.library.Hydrated() {
		b.reply(message.Chat.ID, loadingText)
		return
	}

	b.setState(message.From.ID, &ConversationState{
		Command: convAdd,
		Step:    stepGroup,
		Data:    make(map[string]string),
	})
	b.replyWithMarkup(message.Chat.ID, "Where does the book go?", groupKeyboard())
}

// handleStatus shows the reading status keyboard for one book
func (b *Bot) handleStatus(message *tgbotapi.Message) {
	if !b.library.Hydrated() {
		b.reply(message.Chat.ID, loadingText)
		return
	}

	id := strings.TrimSpace(message.CommandArguments())
	if id == "" {
		b.reply(message.Chat.ID, "Usage: /status <id>")
		return
	}
	item, ok := b.library.Find(id)
	if !ok {
		b.reply(message.Chat.ID, fmt.Sprintf("❌ No book with id %s", id))
		return
	}

	text := fmt.Sprintf("%s is %s. New status:", item.Title, strings.ToLower(statusLabels[item.ReadingStatus]))
	b.replyWithMarkup(message.Chat.ID, text, statusKeyboard(item.ID))
}

// handleCountry sets the country of origin of one book
func (b *Bot) handleCountry(ctx context.Context, message *tgbotapi.Message) {
	args := strings.Fields(message.CommandArguments())
	if len(args) != 2 {
		b.reply(message.Chat.ID, "Usage: /country <id> <code>\n\nExample: /country 42 US")
		return
	}

	if err := b.library.SetCountry(ctx, args[0], args[1]); err != nil {
		b.reply(message.Chat.ID, errorText(err))
		return
	}
	b.reply(message.Chat.ID, fmt.Sprintf("✅ Country set to %s", models.NormalizeCountry(args[1])))
}

// handleDelete removes one book
func (b *Bot) handleDelete(ctx context.Context, message *tgbotapi.Message) {
	id := strings.TrimSpace(message.CommandArguments())
	if id == "" {
		b.reply(message.Chat.ID, "Usage: /delete <id>")
		return
	}

	item, _ := b.library.Find(id)
	if err := b.library.Delete(ctx, id); err != nil {
		b.reply(message.Chat.ID, errorText(err))
		return
	}
	b.reply(message.Chat.ID, fmt.Sprintf("🗑 Deleted %s", item.Title))
}

// handleStats shows collection statistics
func (b *Bot) handleStats(message *tgbotapi.Message) {
	if !b.library.Hydrated() {
		b.reply(message.Chat.ID, loadingText)
		return
	}
	b.reply(message.Chat.ID, formatSummary(stats.Summarize(b.library.Collection())))
}

// handleReset asks for confirmation before deleting everything
func (b *Bot) handleReset(message *tgbotapi.Message) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚠️ Delete everything", "reset:yes"),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", "reset:no"),
		),
	)
	b.replyWithMarkup(message.Chat.ID, "This deletes every book in every group. Are you sure?", keyboard)
}

func formatSummary(s stats.Summary) string {
	var text strings.Builder
	text.WriteString("📊 Library statistics\n\n")
	fmt.Fprintf(&text, "Total: %d\n", s.Total)
	for _, g := range models.Groups {
		fmt.Fprintf(&text, "%s: %d\n", groupLabels[g], s.ByGroup[g])
	}

	text.WriteString("\nReading status:\n")
	for _, rs := range models.ReadingStatuses {
		if n := s.ByStatus[rs]; n > 0 {
			fmt.Fprintf(&text, "  %s: %d\n", statusLabels[rs], n)
		}
	}

	if len(s.FinishedByYear) > 0 {
		years := make([]string, 0, len(s.FinishedByYear))
		for y := range s.FinishedByYear {
			years = append(years, y)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(years)))
		text.WriteString("\nFinished per year:\n")
		for _, y := range years {
			fmt.Fprintf(&text, "  %s: %d\n", y, s.FinishedByYear[y])
		}
	}

	if len(s.ByCountry) > 0 {
		text.WriteString("\nCountries:\n")
		for _, c := range s.ByCountry {
			fmt.Fprintf(&text, "  %s: %d\n", c.Country, c.Count)
		}
	}

	if s.RatedCount > 0 {
		fmt.Fprintf(&text, "\nAverage rating: %.1f (%d rated)\n", s.AverageRating, s.RatedCount)
	}
	fmt.Fprintf(&text, "Pages read: %d", s.PagesRead)
	return text.String()
}
