package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookshelf/internal/collection"
	"bookshelf/internal/models"
	"bookshelf/internal/storage"
	"bookshelf/internal/storage/cache"
)

const (
	userID = int64(123)
	chatID = int64(456)
)

// recorder is a sender that keeps every outgoing message
type recorder struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (r *recorder) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		r.sent = append(r.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (r *recorder) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (r *recorder) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.sent, "expected a reply")
	return r.sent[len(r.sent)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// newStore builds a store over an in-memory cache, hydrated unless told otherwise
func newStore(t *testing.T, remote storage.Remote, hydrate bool) *collection.Store {
	t.Helper()
	c, err := cache.InMemory(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	s := collection.New(c, remote, zap.NewNop(), collection.WithTimeouts(time.Second, time.Second))
	if hydrate {
		_, err := s.Hydrate(context.Background())
		require.NoError(t, err)
	}
	return s
}

func newTestBot(t *testing.T, library Library) (*Bot, *recorder) {
	t.Helper()
	rec := &recorder{}
	return newBot(rec, "test-token", library, []int64{userID}, zap.NewNop()), rec
}

func command(text string) *tgbotapi.Message {
	cmd, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID},
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
}

func text(s string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: s,
	}
}

func callback(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "q",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

func (b *Bot) say(msg *tgbotapi.Message) {
	b.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})
}

func mustCreate(t *testing.T, s *collection.Store, g models.Group, title, author string) models.Item {
	t.Helper()
	item, created, err := s.Create(context.Background(), g, models.Item{Title: title, Author: author}, collection.CreateOptions{})
	require.NoError(t, err)
	require.True(t, created)
	return item
}

func TestBot_AddConversation(t *testing.T) {
	s := newStore(t, nil, true)
	b, rec := newTestBot(t, s)

	b.say(command("/add"))

	state := b.state(userID)
	require.NotNil(t, state)
	assert.Equal(t, convAdd, state.Command)
	assert.Equal(t, stepGroup, state.Step)
	keyboard, ok := rec.last(t).ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok, "group choice needs a keyboard")
	assert.Len(t, keyboard.InlineKeyboard[0], len(models.Groups))

	b.HandleUpdate(context.Background(), callback("group:ebook"))
	require.NotNil(t, b.state(userID))
	assert.Equal(t, stepTitle, b.state(userID).Step)

	b.say(text("Dune / Frank Herbert"))

	assert.Nil(t, b.state(userID), "conversation is cleaned up")
	c := s.Collection()
	require.Len(t, c.Ebook, 1)
	assert.Equal(t, "Dune", c.Ebook[0].Title)
	assert.Equal(t, "Frank Herbert", c.Ebook[0].Author)
	assert.Contains(t, rec.last(t).Text, "Added")
}

func TestBot_AddDuplicate(t *testing.T) {
	s := newStore(t, nil, true)
	mustCreate(t, s, models.GroupOwned, "Dune", "Frank Herbert")
	b, rec := newTestBot(t, s)

	b.say(command("/add"))
	b.HandleUpdate(context.Background(), callback("group:owned"))
	b.say(text("dune / frank herbert"))

	assert.Contains(t, rec.last(t).Text, "already")
	assert.Len(t, s.Collection().Owned, 1)
}

func TestBot_AddRequiresTitle(t *testing.T) {
	s := newStore(t, nil, true)
	b, rec := newTestBot(t, s)

	b.say(command("/add"))
	b.HandleUpdate(context.Background(), callback("group:owned"))
	b.say(text(" / Nobody"))

	require.NotNil(t, b.state(userID), "conversation waits for a usable title")
	assert.Contains(t, rec.last(t).Text, "Example")
	assert.True(t, s.Collection().Empty())
}

func TestBot_TextBeforeGroupChoiceRepeatsKeyboard(t *testing.T) {
	s := newStore(t, nil, true)
	b, rec := newTestBot(t, s)

	b.say(command("/add"))
	b.say(text("Dune"))

	_, ok := rec.last(t).ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.True(t, ok)
	assert.True(t, s.Collection().Empty())
}

func TestBot_CommandInterruptsConversation(t *testing.T) {
	s := newStore(t, nil, true)
	b, _ := newTestBot(t, s)

	b.say(command("/add"))
	require.NotNil(t, b.state(userID))

	b.say(command("/list"))
	assert.Nil(t, b.state(userID))
}

func TestBot_UnauthorizedUser(t *testing.T) {
	s := newStore(t, nil, true)
	b, rec := newTestBot(t, s)

	msg := command("/add")
	msg.From = &tgbotapi.User{ID: 999}
	b.say(msg)

	assert.Contains(t, rec.last(t).Text, "not authorized")
	assert.Nil(t, b.state(999))

	update := callback("reset:yes")
	update.CallbackQuery.From = &tgbotapi.User{ID: 999}
	mustCreate(t, s, models.GroupOwned, "Keep me", "")
	b.HandleUpdate(context.Background(), update)
	assert.Equal(t, 1, s.Collection().Len())
}

func TestBot_StillLoading(t *testing.T) {
	s := newStore(t, nil, false)
	b, rec := newTestBot(t, s)

	for _, cmd := range []string{"/list", "/add", "/status 1", "/stats"} {
		b.say(command(cmd))
		assert.Equal(t, loadingText, rec.last(t).Text, cmd)
	}
	assert.Nil(t, b.state(userID))

	b.say(command("/delete 1"))
	assert.Equal(t, loadingText, rec.last(t).Text)
}

func TestBot_List(t *testing.T) {
	s := newStore(t, nil, true)
	mustCreate(t, s, models.GroupOwned, "Older", "A")
	mustCreate(t, s, models.GroupOwned, "Newer", "B")
	mustCreate(t, s, models.GroupEbook, "Digital", "C")
	b, rec := newTestBot(t, s)

	b.say(command("/list"))
	out := rec.last(t).Text
	assert.Contains(t, out, "Owned (2)")
	assert.Less(t, strings.Index(out, "Newer"), strings.Index(out, "Older"), "newest first")
	assert.Contains(t, out, "Digital")

	b.say(command("/list ebook"))
	out = rec.last(t).Text
	assert.Contains(t, out, "Digital")
	assert.NotContains(t, out, "Older")

	b.say(command("/list shelf"))
	assert.Contains(t, rec.last(t).Text, "Unknown group")
}

func TestBot_ListEmpty(t *testing.T) {
	b, rec := newTestBot(t, newStore(t, nil, true))
	b.say(command("/list"))
	assert.Contains(t, rec.last(t).Text, "empty")
}

func TestBot_Status(t *testing.T) {
	s := newStore(t, nil, true)
	item := mustCreate(t, s, models.GroupOwned, "Dune", "Frank Herbert")
	b, rec := newTestBot(t, s)

	b.say(command("/status " + item.ID))
	keyboard, ok := rec.last(t).ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	var buttons int
	for _, row := range keyboard.InlineKeyboard {
		buttons += len(row)
	}
	assert.Equal(t, len(models.ReadingStatuses), buttons)

	b.HandleUpdate(context.Background(), callback("status:"+item.ID+":in_progress"))
	got, _ := s.Find(item.ID)
	assert.Equal(t, models.ReadingInProgress, got.ReadingStatus)
	assert.Contains(t, rec.last(t).Text, "Reading")

	b.say(command("/status nope"))
	assert.Contains(t, rec.last(t).Text, "No book")
}

func TestBot_StatusCallbackRejectsUnknownStatus(t *testing.T) {
	s := newStore(t, nil, true)
	item := mustCreate(t, s, models.GroupOwned, "Dune", "")
	b, rec := newTestBot(t, s)

	b.HandleUpdate(context.Background(), callback("status:"+item.ID+":stopped"))

	got, _ := s.Find(item.ID)
	assert.Equal(t, models.ReadingUnstarted, got.ReadingStatus)
	assert.Zero(t, rec.count())
}

func TestBot_Country(t *testing.T) {
	s := newStore(t, nil, true)
	item := mustCreate(t, s, models.GroupOwned, "Dune", "")
	b, rec := newTestBot(t, s)

	b.say(command("/country " + item.ID + " usa"))
	got, _ := s.Find(item.ID)
	assert.Equal(t, "US", got.Country)
	assert.Contains(t, rec.last(t).Text, "US")

	b.say(command("/country " + item.ID))
	assert.Contains(t, rec.last(t).Text, "Usage")

	b.say(command("/country missing fr"))
	assert.Contains(t, rec.last(t).Text, "No book")
}

func TestBot_Delete(t *testing.T) {
	s := newStore(t, nil, true)
	item := mustCreate(t, s, models.GroupOwned, "Dune", "")
	b, rec := newTestBot(t, s)

	b.say(command("/delete " + item.ID))
	assert.True(t, s.Collection().Empty())
	assert.Contains(t, rec.last(t).Text, "Deleted Dune")

	b.say(command("/delete " + item.ID))
	assert.Contains(t, rec.last(t).Text, "No book")
}

func TestBot_Reset(t *testing.T) {
	s := newStore(t, nil, true)
	mustCreate(t, s, models.GroupOwned, "One", "")
	mustCreate(t, s, models.GroupEbook, "Two", "")
	b, rec := newTestBot(t, s)

	b.say(command("/reset"))
	_, ok := rec.last(t).ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok, "reset asks for confirmation")

	b.HandleUpdate(context.Background(), callback("reset:no"))
	assert.Equal(t, 2, s.Collection().Len())

	b.HandleUpdate(context.Background(), callback("reset:yes"))
	assert.True(t, s.Collection().Empty())
	assert.Contains(t, rec.last(t).Text, "All books deleted")
}

func TestBot_Stats(t *testing.T) {
	s := newStore(t, nil, true)
	mustCreate(t, s, models.GroupOwned, "One", "")
	mustCreate(t, s, models.GroupPassedAlong, "Two", "")
	b, rec := newTestBot(t, s)

	b.say(command("/stats"))
	out := rec.last(t).Text
	assert.Contains(t, out, "Total: 2")
	assert.Contains(t, out, "Finished: 1")
	assert.Contains(t, out, "KR: 2")
}

func TestBot_NilAPIDoesNotPanic(t *testing.T) {
	s := newStore(t, nil, true)
	b := newBot(nil, "", s, []int64{userID}, nil)

	assert.NotPanics(t, func() {
		b.say(command("/start"))
		b.HandleUpdate(context.Background(), callback("reset:no"))
	})
}

func TestBot_StartWithoutAPI(t *testing.T) {
	b, _ := newTestBot(t, newStore(t, nil, true))
	assert.ErrorIs(t, b.Start(context.Background()), errNoAPI)
	assert.ErrorIs(t, b.StartWebhook("https://example.com"), errNoAPI)
}

func TestWebhookHandler(t *testing.T) {
	s := newStore(t, nil, true)
	b, rec := newTestBot(t, s)
	h := b.WebhookHandler(context.Background())

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := `{"update_id":1,"message":{"message_id":1,"from":{"id":123},"chat":{"id":456},"text":"/start",` +
		`"entities":[{"type":"bot_command","offset":0,"length":6}]}}`
	w = httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, w.Code)

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, rec.last(t).Text, "Welcome")
}

func TestParseTitleAuthor(t *testing.T) {
	tests := []struct {
		in            string
		title, author string
	}{
		{"Dune / Frank Herbert", "Dune", "Frank Herbert"},
		{"Dune", "Dune", ""},
		{"  Dune/Herbert ", "Dune", "Herbert"},
		{"A / B / C", "A", "B / C"},
		{" / Nobody", "", "Nobody"},
	}
	for _, tt := range tests {
		title, author := parseTitleAuthor(tt.in)
		assert.Equal(t, tt.title, title, tt.in)
		assert.Equal(t, tt.author, author, tt.in)
	}
}
