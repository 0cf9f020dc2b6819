// Package session holds the single authenticated user snapshot for one
// browser profile. The snapshot is a copy of the directory record at
// login time: later directory mutations do not flow into it unless a
// component explicitly re-reads or the directory pushes a replacement
// through ReplaceIf.
package session

import (
	"log/slog"

	"github.com/CapOVH/dasssb/internal/bus"
	"github.com/CapOVH/dasssb/internal/directory"
	"github.com/CapOVH/dasssb/internal/model"
)

// KeyCurrentUser is the storage key for the active session snapshot.
const KeyCurrentUser = "ssb_current_user"

// EventAuthChanged is announced in-context after login, logout and
// profile changes. Other contexts observe the key change instead.
const EventAuthChanged = "ssb_auth_changed"

// Manager owns the at-most-one active session.
type Manager struct {
	ctx    *bus.Context
	logger *slog.Logger
}

func New(ctx *bus.Context, logger *slog.Logger) *Manager {
	return &Manager{ctx: ctx, logger: logger}
}

// Current re-reads the snapshot from storage.
func (m *Manager) Current() (model.User, bool) {
	return model.DecodeUser(m.ctx.Get(KeyCurrentUser))
}

// Login stores the user as the active session. A user without a badge
// gets the default founder badge at this point, matching how the
// dashboard decorated fresh accounts.
func (m *Manager) Login(user model.User) model.User {
	if user.Badge == "" {
		user.Badge = directory.FounderBadgeURL
	}
	m.ctx.Set(KeyCurrentUser, model.Encode(user))
	m.ctx.Announce(EventAuthChanged)
	m.logger.Info("session opened", slog.String("userKey", user.Key()))
	return user
}

// Logout destroys the session.
func (m *Manager) Logout() {
	m.ctx.Delete(KeyCurrentUser)
	m.ctx.Announce(EventAuthChanged)
	m.logger.Info("session closed")
}

// ReplaceIf swaps the snapshot when it belongs to the same user key.
// Satisfies directory.SessionUpdater.
func (m *Manager) ReplaceIf(user model.User) {
	current, ok := m.Current()
	if !ok || current.Key() != user.Key() {
		return
	}
	// Keep the badge decoration rule consistent with Login.
	if user.Badge == "" {
		user.Badge = current.Badge
	}
	m.ctx.Set(KeyCurrentUser, model.Encode(user))
	m.ctx.Announce(EventAuthChanged)
}

var _ directory.SessionUpdater = (*Manager)(nil)
