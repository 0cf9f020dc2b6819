package model

import (
	"fmt"
	"strings"
	"time"
)

// SystemColor is the accent color stamped on system messages.
const SystemColor = "#53FC18"

// ChatMessage is immutable once appended to a room. Ordering is append
// order; rooms truncate FIFO at their retention cap.
type ChatMessage struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	Color     string `json:"color"`
	Badge     string `json:"badge,omitempty"`
	IsSystem  bool   `json:"isSystem,omitempty"`
	IsHype    bool   `json:"isHype,omitempty"`
}

func DecodeMessages(raw string, present bool) ([]ChatMessage, bool) {
	return decode[[]ChatMessage](raw, present)
}

// RoomDisplayName renders a room id for user-facing text: the global
// room is "Global", a streamer room "stream_<slug>" is "<slug>'s Room".
func RoomDisplayName(roomID string) string {
	if roomID == "global" {
		return "Global"
	}
	return strings.TrimPrefix(roomID, "stream_") + "'s Room"
}

// WelcomeMessage is the single system message synthesized for an empty
// room, on both the client presenter and the server log.
func WelcomeMessage(roomID string, now time.Time) ChatMessage {
	return ChatMessage{
		ID:        "1",
		User:      "System",
		Text:      fmt.Sprintf("Welcome to %s Chat!", RoomDisplayName(roomID)),
		Timestamp: now.UnixMilli(),
		Color:     SystemColor,
		IsSystem:  true,
	}
}

// AppendCapped appends msg and drops the oldest entries past cap.
func AppendCapped(msgs []ChatMessage, msg ChatMessage, cap int) []ChatMessage {
	msgs = append(msgs, msg)
	if len(msgs) > cap {
		msgs = msgs[len(msgs)-cap:]
	}
	return msgs
}
