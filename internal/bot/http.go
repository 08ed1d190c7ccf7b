package bot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"bookshelf/internal/collection"
	"bookshelf/internal/importer"
	"bookshelf/internal/models"
	"bookshelf/internal/stats"
)

const (
	// initDataMaxAge bounds how old a Mini App initData may be
	initDataMaxAge = 24 * time.Hour
	// maxImportBytes caps the size of an uploaded spreadsheet
	maxImportBytes = 10 << 20
)

// HTTPServer serves the JSON API used by the Mini App
type HTTPServer struct {
	bot         *Bot
	webhookMode bool // If false (polling mode), skip authentication for easier local dev
	now         func() time.Time
}

// NewHTTPServer creates the JSON API for the Mini App
func NewHTTPServer(bot *Bot, webhookMode bool) *HTTPServer {
	return &HTTPServer{
		bot:         bot,
		webhookMode: webhookMode,
		now:         time.Now,
	}
}

// Routes returns the API router, meant to be mounted under /api
func (hs *HTTPServer) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(hs.authMiddleware)
	r.Use(hs.requireHydrated)

	r.Get("/collection", hs.handleCollection)
	r.Get("/stats", hs.handleStats)
	r.Post("/import", hs.handleImport)

	r.Route("/items", func(r chi.Router) {
		r.Post("/", hs.handleCreate)
		r.Delete("/", hs.handleReset)
		r.Put("/{id}", hs.handleUpdate)
		r.Delete("/{id}", hs.handleDelete)
		r.Put("/{id}/status", hs.handleSetStatus)
		r.Put("/{id}/country", hs.handleSetCountry)
	})
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (hs *HTTPServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hs.bot.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func (hs *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	hs.writeJSON(w, status, errorResponse{Error: message})
}

// writeStoreError maps a store error onto an HTTP status
func (hs *HTTPServer) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, collection.ErrNotReady):
		hs.writeError(w, http.StatusServiceUnavailable, "library is still loading")
	case errors.Is(err, collection.ErrNotFound):
		hs.writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, collection.ErrInvalid):
		hs.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, collection.ErrRemote):
		hs.writeError(w, http.StatusBadGateway, "remote store unavailable")
	default:
		hs.bot.logger.Error("Store call failed", zap.Error(err))
		hs.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// requireHydrated answers 503 until the store has a collection to serve
func (hs *HTTPServer) requireHydrated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hs.bot.library.Hydrated() {
			w.Header().Set("Retry-After", "1")
			hs.writeError(w, http.StatusServiceUnavailable, "library is still loading")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validateTelegramInitData validates the Telegram Mini App initData
func (hs *HTTPServer) validateTelegramInitData(initData string) (int64, error) {
	if initData == "" {
		return 0, fmt.Errorf("missing initData")
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return 0, fmt.Errorf("invalid initData format: %w", err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return 0, fmt.Errorf("missing hash in initData")
	}
	values.Del("hash")

	if !hmac.Equal([]byte(initDataHash(hs.bot.token, values)), []byte(hash)) {
		return 0, fmt.Errorf("invalid hash")
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("missing auth_date")
	}
	if hs.now().Sub(time.Unix(authDate, 0)) > initDataMaxAge {
		return 0, fmt.Errorf("initData is too old")
	}

	userStr := values.Get("user")
	if userStr == "" {
		return 0, fmt.Errorf("missing user data")
	}
	var userData struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(userStr), &userData); err != nil {
		return 0, fmt.Errorf("invalid user data: %w", err)
	}

	if !hs.bot.allowedUsers[userData.ID] {
		return 0, fmt.Errorf("user not allowed")
	}
	return userData.ID, nil
}

// initDataHash signs the sorted key=value lines of values with the bot token
func initDataHash(token string, values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var dataCheckString strings.Builder
	for i, k := range keys {
		if i > 0 {
			dataCheckString.WriteByte('\n')
		}
		dataCheckString.WriteString(k)
		dataCheckString.WriteByte('=')
		dataCheckString.WriteString(values.Get(k))
	}

	secretKey := hmac.New(sha256.New, []byte("WebAppData"))
	secretKey.Write([]byte(token))

	h := hmac.New(sha256.New, secretKey.Sum(nil))
	h.Write([]byte(dataCheckString.String()))
	return hex.EncodeToString(h.Sum(nil))
}

// authMiddleware validates Telegram Mini App authentication.
// In polling mode authentication is skipped for easier local development.
func (hs *HTTPServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hs.webhookMode {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "tma ") {
			hs.bot.logger.Warn("Missing or invalid authorization header", zap.String("path", r.URL.Path))
			hs.writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		userID, err := hs.validateTelegramInitData(strings.TrimPrefix(authHeader, "tma "))
		if err != nil {
			hs.bot.logger.Warn("Failed to validate initData",
				zap.Error(err),
				zap.String("remote_addr", r.RemoteAddr),
			)
			hs.writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		hs.bot.logger.Debug("Authenticated request",
			zap.Int64("user_id", userID),
			zap.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r)
	})
}

func (hs *HTTPServer) handleCollection(w http.ResponseWriter, r *http.Request) {
	hs.writeJSON(w, http.StatusOK, hs.bot.library.Collection())
}

func (hs *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	hs.writeJSON(w, http.StatusOK, stats.Summarize(hs.bot.library.Collection()))
}

// CreateItemRequest is the body of POST /api/items
type CreateItemRequest struct {
	Group    string      `json:"group"`
	Finished bool        `json:"finished"`
	Item     models.Item `json:"item"`
}

// CreateItemResponse reports the stored item and whether it was new
type CreateItemResponse struct {
	Item    models.Item `json:"item"`
	Created bool        `json:"created"`
}

func (hs *HTTPServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hs.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	g, ok := models.ParseGroup(req.Group)
	if !ok {
		hs.writeError(w, http.StatusBadRequest, "unknown group")
		return
	}

	item, created, err := hs.bot.library.Create(r.Context(), g, req.Item, collection.CreateOptions{Finished: req.Finished})
	if err != nil && !created {
		hs.writeStoreError(w, err)
		return
	}
	if err != nil {
		// the item is in the collection even though the cache write failed
		hs.bot.logger.Warn("Created item without caching it", zap.String("id", item.ID), zap.Error(err))
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	hs.writeJSON(w, status, CreateItemResponse{Item: item, Created: created})
}

func (hs *HTTPServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var item models.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		hs.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	item.ID = chi.URLParam(r, "id")

	if err := hs.bot.library.Update(r.Context(), item); err != nil {
		hs.writeStoreError(w, err)
		return
	}
	hs.writeUpdated(w, item.ID)
}

func (hs *HTTPServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := hs.bot.library.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		hs.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (hs *HTTPServer) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hs.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	if err := hs.bot.library.SetReadingStatus(r.Context(), id, models.ReadingStatus(req.Status)); err != nil {
		hs.writeStoreError(w, err)
		return
	}
	hs.writeUpdated(w, id)
}

func (hs *HTTPServer) handleSetCountry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Country string `json:"country"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hs.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	if err := hs.bot.library.SetCountry(r.Context(), id, req.Country); err != nil {
		hs.writeStoreError(w, err)
		return
	}
	hs.writeUpdated(w, id)
}

// writeUpdated answers with the stored state of an item after a change
func (hs *HTTPServer) writeUpdated(w http.ResponseWriter, id string) {
	item, ok := hs.bot.library.Find(id)
	if !ok {
		hs.writeError(w, http.StatusNotFound, "item not found")
		return
	}
	hs.writeJSON(w, http.StatusOK, item)
}

func (hs *HTTPServer) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := hs.bot.library.ResetAll(r.Context()); err != nil {
		hs.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportFailure names a spreadsheet row the store rejected
type ImportFailure struct {
	Title string `json:"title"`
	Error string `json:"error"`
}

// ImportResponse summarizes a spreadsheet import
type ImportResponse struct {
	Imported   int             `json:"imported"`
	Duplicates int             `json:"duplicates"`
	Failed     []ImportFailure `json:"failed"`
}

// handleImport creates one item per spreadsheet row. Rows are independent; a failed row
// does not undo earlier ones.
func (hs *HTTPServer) handleImport(w http.ResponseWriter, r *http.Request) {
	candidates, err := importer.Parse(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		hs.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := ImportResponse{Failed: []ImportFailure{}}
	for _, c := range candidates {
		_, created, err := hs.bot.library.Create(r.Context(), c.Group, c.Item, collection.CreateOptions{})
		switch {
		case created:
			// a cache write failure still leaves the item in the collection
			resp.Imported++
		case err != nil:
			resp.Failed = append(resp.Failed, ImportFailure{Title: c.Item.Title, Error: err.Error()})
		default:
			resp.Duplicates++
		}
	}

	hs.bot.logger.Info("Spreadsheet imported",
		zap.Int("rows", len(candidates)),
		zap.Int("imported", resp.Imported),
		zap.Int("duplicates", resp.Duplicates),
		zap.Int("failed", len(resp.Failed)),
	)
	hs.writeJSON(w, http.StatusOK, resp)
}
