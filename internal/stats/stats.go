// Package stats accumulates per-user time-on-site. The tracker is a
// collaborator outside the moderation core: it writes usage records
// that the admin console only reads.
package stats

import (
	"log/slog"
	"time"

	"github.com/CapOVH/dasssb/internal/bus"
	"github.com/CapOVH/dasssb/internal/model"
)

// KeyStats is the storage key for the per-user usage map.
const KeyStats = "ssb_user_stats"

type Tracker struct {
	ctx    *bus.Context
	logger *slog.Logger
}

func NewTracker(ctx *bus.Context, logger *slog.Logger) *Tracker {
	return &Tracker{ctx: ctx, logger: logger}
}

// Record adds watch time for a user on one streamer and refreshes
// their last-active timestamp. Read-modify-write of the full map.
func (t *Tracker) Record(username, streamerSlug string, delta time.Duration, now time.Time) {
	all := t.All()

	entry := all[username]
	if entry.WatchHistory == nil {
		entry.WatchHistory = make(map[string]int64)
	}
	entry.TotalTimeMs += delta.Milliseconds()
	entry.WatchHistory[streamerSlug] += delta.Milliseconds()
	entry.LastActive = now.UnixMilli()
	all[username] = entry

	t.ctx.Set(KeyStats, model.Encode(all))
}

// Touch refreshes last-active without adding watch time.
func (t *Tracker) Touch(username string, now time.Time) {
	all := t.All()
	entry := all[username]
	if entry.WatchHistory == nil {
		entry.WatchHistory = make(map[string]int64)
	}
	entry.LastActive = now.UnixMilli()
	all[username] = entry
	t.ctx.Set(KeyStats, model.Encode(all))
}

// All returns the current usage map.
func (t *Tracker) All() model.StatsMap {
	return model.DecodeStats(t.ctx.Get(KeyStats))
}
