package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/CapOVH/dasssb/internal/apperror"
	"github.com/CapOVH/dasssb/internal/chatlog"
	"github.com/CapOVH/dasssb/internal/model"
)

type ChatHandler struct {
	log *chatlog.Log
}

func NewChatHandler(log *chatlog.Log) *ChatHandler {
	return &ChatHandler{log: log}
}

// Get serves GET /api/chat?roomId=<room>: the room history, welcome
// message included for rooms with none yet.
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		writeError(w, apperror.ValidationFailed("roomId", "roomId is required"))
		return
	}

	msgs, err := h.log.Messages(roomID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

type postChatRequest struct {
	RoomID  string            `json:"roomId"`
	Message model.ChatMessage `json:"message"`
}

// Post serves POST /api/chat: appends one message to the room log and
// returns the updated history.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req postChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid request body"))
		return
	}
	if req.RoomID == "" {
		writeError(w, apperror.ValidationFailed("roomId", "roomId is required"))
		return
	}
	if strings.TrimSpace(req.Message.Text) == "" {
		writeError(w, apperror.ValidationFailed("message", "message text is required"))
		return
	}

	msgs, err := h.log.Append(req.RoomID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
