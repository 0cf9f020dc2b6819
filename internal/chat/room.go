// Package chat renders and composes room messages. A Room is the
// client-side presenter: it reads history from the profile store, caps
// retention at 50 messages FIFO, and reacts to change-bus updates from
// other tabs. The server-side log (internal/chatlog) keeps 100 and is
// reachable through Client as a fallback transport.
package chat

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/CapOVH/dasssb/internal/apperror"
	"github.com/CapOVH/dasssb/internal/bus"
	"github.com/CapOVH/dasssb/internal/directory"
	"github.com/CapOVH/dasssb/internal/model"
)

// ClientRetention is the client-side room cap.
const ClientRetention = 50

const (
	hypeSender = "HYPE TRAIN"
	hypeColor  = "#FFD700"
)

// HistoryKey returns the storage key for a room's message list.
func HistoryKey(roomID string) string {
	return "chat_history_" + roomID
}

type Room struct {
	ctx    *bus.Context
	roomID string
	logger *slog.Logger
	now    func() time.Time
}

func NewRoom(ctx *bus.Context, roomID string, logger *slog.Logger) *Room {
	return &Room{ctx: ctx, roomID: roomID, logger: logger, now: time.Now}
}

// SetClock overrides the wall clock. Tests only.
func (r *Room) SetClock(now func() time.Time) {
	r.now = now
}

// Messages returns the room history, synthesizing the single welcome
// system message for an empty room.
func (r *Room) Messages() []model.ChatMessage {
	msgs, ok := model.DecodeMessages(r.ctx.Get(HistoryKey(r.roomID)))
	if !ok || len(msgs) == 0 {
		return []model.ChatMessage{model.WelcomeMessage(r.roomID, r.now())}
	}
	return msgs
}

// OnUpdate subscribes to history changes made by other tabs. The
// handler receives the fresh message list.
func (r *Room) OnUpdate(fn func([]model.ChatMessage)) {
	r.ctx.Subscribe(HistoryKey(r.roomID), func(raw string, present bool) {
		msgs, ok := model.DecodeMessages(raw, present)
		if !ok {
			return
		}
		fn(msgs)
	})
}

// Send composes and appends a message from the given user, stamped
// with their color and badge.
func (r *Room) Send(user model.User, text string) (model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ChatMessage{}, apperror.ValidationFailed("text", "message is empty")
	}

	color := user.Color
	if color == "" {
		color = "#ffffff"
	}
	badge := user.Badge
	if badge == "" {
		badge = directory.FounderBadgeURL
	}

	msg := model.ChatMessage{
		ID:        xid.New().String(),
		User:      user.Username,
		Text:      text,
		Timestamp: r.now().UnixMilli(),
		Color:     color,
		Badge:     badge,
	}
	r.append(msg)
	return msg, nil
}

// AnnounceHype appends the gold system message for a hype drop. This
// is the one effect the hype meter and chat share.
func (r *Room) AnnounceHype(username string, amount int) model.ChatMessage {
	msg := model.ChatMessage{
		ID:        xid.New().String(),
		User:      hypeSender,
		Text:      username + " dropped " + strconv.Itoa(amount) + " Hype! Choo Choo!",
		Timestamp: r.now().UnixMilli(),
		Color:     hypeColor,
		IsSystem:  true,
		IsHype:    true,
	}
	r.append(msg)
	return msg
}

func (r *Room) append(msg model.ChatMessage) {
	msgs, _ := model.DecodeMessages(r.ctx.Get(HistoryKey(r.roomID)))
	if len(msgs) == 0 {
		msgs = []model.ChatMessage{model.WelcomeMessage(r.roomID, r.now())}
	}
	msgs = model.AppendCapped(msgs, msg, ClientRetention)
	r.ctx.Set(HistoryKey(r.roomID), model.Encode(msgs))
}
