// Package chatlog persists room chat history in a single flat JSON
// file, keyed by room. It backs the HTTP chat endpoints and holds a
// deeper history than any one tab keeps in its own store.
package chatlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/CapOVH/dasssb/internal/model"
)

// ServerRetention caps the stored history per room, newest kept. It is
// deliberately deeper than what tabs retain locally.
const ServerRetention = 100

const fileName = "chat-log.json"

type Log struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

func New(dataDir string, logger *slog.Logger) *Log {
	return &Log{
		path:   filepath.Join(dataDir, fileName),
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the wall clock. Tests only.
func (l *Log) SetClock(now func() time.Time) {
	l.now = now
}

// Messages returns the room's history. A room with no stored messages
// yields a synthesized welcome message, so success never returns an
// empty list.
func (l *Log) Messages(roomID string) ([]model.ChatMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rooms, err := l.load()
	if err != nil {
		return nil, err
	}
	msgs := rooms[roomID]
	if len(msgs) == 0 {
		return []model.ChatMessage{model.WelcomeMessage(roomID, l.now())}, nil
	}
	return msgs, nil
}

// Append stores a message in the room, seeding the welcome message
// first when the room is new, and returns the updated history.
func (l *Log) Append(roomID string, msg model.ChatMessage) ([]model.ChatMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rooms, err := l.load()
	if err != nil {
		return nil, err
	}

	msgs := rooms[roomID]
	if len(msgs) == 0 {
		msgs = []model.ChatMessage{model.WelcomeMessage(roomID, l.now())}
	}
	msgs = model.AppendCapped(msgs, msg, ServerRetention)
	rooms[roomID] = msgs

	if err := l.save(rooms); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (l *Log) load() (map[string][]model.ChatMessage, error) {
	raw, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return map[string][]model.ChatMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chatlog: reading %s: %w", l.path, err)
	}

	rooms := map[string][]model.ChatMessage{}
	if err := json.Unmarshal(raw, &rooms); err != nil {
		// A corrupt log is dropped rather than wedging chat.
		l.logger.Warn("chat log corrupt, starting fresh", slog.String("path", l.path))
		return map[string][]model.ChatMessage{}, nil
	}
	return rooms, nil
}

func (l *Log) save(rooms map[string][]model.ChatMessage) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("chatlog: creating data dir: %w", err)
	}
	raw, err := json.Marshal(rooms)
	if err != nil {
		return fmt.Errorf("chatlog: encoding log: %w", err)
	}
	if err := os.WriteFile(l.path, raw, 0o644); err != nil {
		return fmt.Errorf("chatlog: writing %s: %w", l.path, err)
	}
	return nil
}
