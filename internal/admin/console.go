// Package admin implements the moderation console: privileged
// mutations over the user directory plus read-only aggregates over the
// usage-statistics store.
//
// Every operation is gated on the caller's session: role admin, or the
// distinguished super-admin username which additionally unlocks role
// toggling. Mutations go through the directory's whole-map write-back
// and re-broadcast, so open consoles in other tabs converge within one
// polling interval.
package admin

import (
	"log/slog"
	"time"

	"github.com/CapOVH/dasssb/internal/apperror"
	"github.com/CapOVH/dasssb/internal/bus"
	"github.com/CapOVH/dasssb/internal/directory"
	"github.com/CapOVH/dasssb/internal/model"
	"github.com/CapOVH/dasssb/internal/session"
	"github.com/CapOVH/dasssb/internal/stats"
)

// KeyLogs is the storage key for the moderation/AI activity feed.
const KeyLogs = "ssb_ai_logs"

// LogRetention caps the activity feed, newest kept.
const LogRetention = 200

// ActiveWindow is the trailing window for the active-user count.
const ActiveWindow = 5 * time.Minute

const banReason = "Admin Console Action"

type Console struct {
	ctx        *bus.Context
	users      *directory.Service
	sessions   *session.Manager
	tracker    *stats.Tracker
	superAdmin string // lower-cased distinguished username
	logger     *slog.Logger
	now        func() time.Time
}

func NewConsole(
	ctx *bus.Context,
	users *directory.Service,
	sessions *session.Manager,
	tracker *stats.Tracker,
	superAdmin string,
	logger *slog.Logger,
) *Console {
	return &Console{
		ctx:        ctx,
		users:      users,
		sessions:   sessions,
		tracker:    tracker,
		superAdmin: superAdmin,
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock overrides the wall clock. Tests only.
func (c *Console) SetClock(now func() time.Time) {
	c.now = now
}

// Authorize returns the acting user when the current session may use
// the console: role admin, or the distinguished super-admin username.
func (c *Console) Authorize() (model.User, error) {
	actor, ok := c.sessions.Current()
	if !ok {
		return model.User{}, apperror.Forbidden("admin console requires a signed-in admin")
	}
	if !actor.IsAdmin() && actor.Key() != c.superAdmin {
		return model.User{}, apperror.Forbidden("admin console requires the admin role")
	}
	return actor, nil
}

func (c *Console) authorizeSuper() (model.User, error) {
	actor, err := c.Authorize()
	if err != nil {
		return model.User{}, err
	}
	if actor.Key() != c.superAdmin {
		return model.User{}, apperror.Forbidden("role changes require the super admin")
	}
	return actor, nil
}

// Ban suspends the target for durationHours. Admins cannot be banned,
// not even by the super-admin.
func (c *Console) Ban(targetKey string, durationHours int) error {
	actor, err := c.Authorize()
	if err != nil {
		return err
	}

	users := c.users.All()
	target, ok := users[targetKey]
	if !ok {
		return apperror.NotFound("user", targetKey)
	}
	if target.IsAdmin() {
		return apperror.Forbidden("cannot ban another admin: " + target.Username)
	}

	target.Banned = &model.Ban{
		Until:  c.now().Add(time.Duration(durationHours) * time.Hour).UnixMilli(),
		Reason: banReason,
	}
	users[targetKey] = target
	c.users.Save(users)

	c.appendLog("warning", actor.Username+" banned "+target.Username)
	return nil
}

// Unban clears the target's ban unconditionally.
func (c *Console) Unban(targetKey string) error {
	actor, err := c.Authorize()
	if err != nil {
		return err
	}

	users := c.users.All()
	target, ok := users[targetKey]
	if !ok {
		return apperror.NotFound("user", targetKey)
	}
	target.Banned = nil
	users[targetKey] = target
	c.users.Save(users)

	c.appendLog("info", actor.Username+" unbanned "+target.Username)
	return nil
}

// ToggleVerified flips verification. Turning it on also assigns the
// default verified badge when the user has none set.
func (c *Console) ToggleVerified(targetKey string) error {
	actor, err := c.Authorize()
	if err != nil {
		return err
	}

	users := c.users.All()
	target, ok := users[targetKey]
	if !ok {
		return apperror.NotFound("user", targetKey)
	}
	target.Verified = !target.Verified
	if target.Verified && target.Badge == "" {
		target.Badge = directory.VerifiedBadgeURL
	}
	users[targetKey] = target
	c.users.Save(users)

	c.appendLog("info", actor.Username+" toggled verification for "+target.Username)
	return nil
}

// ToggleAdminRole flips the target between user and admin. Restricted
// to the distinguished super-admin.
func (c *Console) ToggleAdminRole(targetKey string) error {
	actor, err := c.authorizeSuper()
	if err != nil {
		return err
	}

	users := c.users.All()
	target, ok := users[targetKey]
	if !ok {
		return apperror.NotFound("user", targetKey)
	}
	if target.IsAdmin() {
		target.Role = model.RoleUser
	} else {
		target.Role = model.RoleAdmin
	}
	users[targetKey] = target
	c.users.Save(users)

	c.appendLog("warning", actor.Username+" set role "+string(target.Role)+" on "+target.Username)
	return nil
}

// Snapshot is one full console read: directory, usage stats and the
// capped activity feed. The 2s poll loop re-reads it as the safety net
// behind the change-bus notifications.
type Snapshot struct {
	Users model.Directory
	Stats model.StatsMap
	Logs  []model.LogEntry
}

func (c *Console) Load() (Snapshot, error) {
	if _, err := c.Authorize(); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Users: c.users.All(),
		Stats: c.tracker.All(),
		Logs:  model.DecodeLog(c.ctx.Get(KeyLogs)),
	}, nil
}

// Overview aggregates the snapshot into the dashboard headline
// numbers.
type Overview struct {
	TotalTimeMs int64
	ActiveUsers int
	LogCount    int
}

func (c *Console) Overview() (Overview, error) {
	snap, err := c.Load()
	if err != nil {
		return Overview{}, err
	}

	now := c.now()
	var out Overview
	for _, entry := range snap.Stats {
		out.TotalTimeMs += entry.TotalTimeMs
		if entry.ActiveWithin(ActiveWindow, now) {
			out.ActiveUsers++
		}
	}
	out.LogCount = len(snap.Logs)
	return out, nil
}

func (c *Console) appendLog(kind, message string) {
	logs := model.DecodeLog(c.ctx.Get(KeyLogs))
	now := c.now()
	logs = append(logs, model.LogEntry{
		ID:      now.UnixNano(),
		Time:    now.Format("15:04:05"),
		Status:  "ok",
		Message: message,
		Type:    kind,
	})
	if len(logs) > LogRetention {
		logs = logs[len(logs)-LogRetention:]
	}
	c.ctx.Set(KeyLogs, model.Encode(logs))
	c.logger.Info("moderation action", slog.String("message", message))
}
