package handler_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CapOVH/dasssb/internal/chatlog"
	"github.com/CapOVH/dasssb/internal/handler"
	"github.com/CapOVH/dasssb/internal/model"
)

func newChatHandler(t *testing.T) *handler.ChatHandler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return handler.NewChatHandler(chatlog.New(t.TempDir(), logger))
}

func TestChatHandler_Get(t *testing.T) {
	h := newChatHandler(t)

	t.Run("missing roomId", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
		rr := httptest.NewRecorder()

		h.Get(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("empty room returns welcome", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/chat?roomId=global", nil)
		rr := httptest.NewRecorder()

		h.Get(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var msgs []model.ChatMessage
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&msgs))
		require.Len(t, msgs, 1)
		assert.True(t, msgs[0].IsSystem)
	})
}

func TestChatHandler_Post(t *testing.T) {
	h := newChatHandler(t)

	t.Run("appends and returns history", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"roomId":  "stream_cheesur",
			"message": model.ChatMessage{ID: "m1", User: "reese", Text: "hello"},
		})
		req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		h.Post(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var msgs []model.ChatMessage
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&msgs))
		require.Len(t, msgs, 2)
		assert.Equal(t, "hello", msgs[1].Text)
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"roomId":`))
		rr := httptest.NewRecorder()

		h.Post(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing roomId", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"message": model.ChatMessage{Text: "orphan"},
		})
		req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
		rr := httptest.NewRecorder()

		h.Post(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("blank message text", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"roomId":  "global",
			"message": model.ChatMessage{Text: "   "},
		})
		req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
		rr := httptest.NewRecorder()

		h.Post(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
