// Package viewer assembles one tab's worth of dashboard state: every
// client-side service wired over a single bus context, plus the timer
// loops that poll shared state as the safety net behind change-bus
// notifications.
package viewer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/CapOVH/dasssb/internal/admin"
	"github.com/CapOVH/dasssb/internal/bus"
	"github.com/CapOVH/dasssb/internal/chat"
	"github.com/CapOVH/dasssb/internal/config"
	"github.com/CapOVH/dasssb/internal/directory"
	"github.com/CapOVH/dasssb/internal/hype"
	"github.com/CapOVH/dasssb/internal/kick"
	"github.com/CapOVH/dasssb/internal/ledger"
	"github.com/CapOVH/dasssb/internal/model"
	"github.com/CapOVH/dasssb/internal/prediction"
	"github.com/CapOVH/dasssb/internal/session"
	"github.com/CapOVH/dasssb/internal/stats"
)

// Viewer is one open tab. All services share the tab's bus context, so
// their writes broadcast to other tabs on the same origin.
type Viewer struct {
	Users    *directory.Service
	Sessions *session.Manager
	Points   *ledger.Ledger
	Market   *prediction.Market
	Tracker  *stats.Tracker
	Console  *admin.Console
	Feed     *kick.Client

	ctx    *bus.Context
	cfg    *config.Config
	logger *slog.Logger

	mu        sync.Mutex
	rooms     map[string]*chat.Room
	meters    map[string]*hype.Meter
	roster    []model.Streamer
	adminSnap admin.Snapshot

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(busCtx *bus.Context, cfg *config.Config, logger *slog.Logger) *Viewer {
	sessions := session.New(busCtx, logger)
	users := directory.New(busCtx, directory.NewPasswordService(), logger)
	users.AttachSessions(sessions)

	points := ledger.New(busCtx, logger)
	market := prediction.NewMarket(busCtx, points, logger)
	tracker := stats.NewTracker(busCtx, logger)
	console := admin.NewConsole(busCtx, users, sessions, tracker, cfg.Viewer.SuperAdmin, logger)
	feed := kick.NewClient(cfg.Kick.BaseURLV2, cfg.Kick.BaseURLV1, logger)

	return &Viewer{
		Users:    users,
		Sessions: sessions,
		Points:   points,
		Market:   market,
		Tracker:  tracker,
		Console:  console,
		Feed:     feed,
		ctx:      busCtx,
		cfg:      cfg,
		logger:   logger,
		rooms:    make(map[string]*chat.Room),
		meters:   make(map[string]*hype.Meter),
	}
}

// Room returns the tab's presenter for one chat room, creating it on
// first use.
func (v *Viewer) Room(roomID string) *chat.Room {
	v.mu.Lock()
	defer v.mu.Unlock()
	room, ok := v.rooms[roomID]
	if !ok {
		room = chat.NewRoom(v.ctx, roomID, v.logger)
		v.rooms[roomID] = room
	}
	return room
}

// Hype returns the meter for one room, creating it on first use. The
// meter debits the tab's ledger and announces into the room's chat.
func (v *Viewer) Hype(roomID string) *hype.Meter {
	v.mu.Lock()
	defer v.mu.Unlock()
	meter, ok := v.meters[roomID]
	if !ok {
		meter = hype.NewMeter(v.ctx, roomID, v.Points, v.roomLocked(roomID), v.logger)
		v.meters[roomID] = meter
	}
	return meter
}

func (v *Viewer) roomLocked(roomID string) *chat.Room {
	room, ok := v.rooms[roomID]
	if !ok {
		room = chat.NewRoom(v.ctx, roomID, v.logger)
		v.rooms[roomID] = room
	}
	return room
}

// Roster returns the latest liveness snapshot.
func (v *Viewer) Roster() []model.Streamer {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]model.Streamer(nil), v.roster...)
}

// Watch records watch time for the signed-in user on one streamer.
func (v *Viewer) Watch(streamerSlug string, delta time.Duration) {
	user, ok := v.Sessions.Current()
	if !ok {
		return
	}
	v.Tracker.Record(user.Key(), streamerSlug, delta, time.Now())
}

// Start launches the background loops: the roster refresh that also
// drives prediction generation, the hype settle tick, and the bet
// evaluation tick. Stop cancels them and waits.
func (v *Viewer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel

	v.refreshRoster(ctx)

	v.loop(ctx, v.cfg.Viewer.RosterPoll(), func(now time.Time) {
		v.refreshRoster(ctx)
	})
	v.loop(ctx, v.cfg.Viewer.HypePoll(), func(now time.Time) {
		v.mu.Lock()
		meters := make([]*hype.Meter, 0, len(v.meters))
		for _, m := range v.meters {
			meters = append(meters, m)
		}
		v.mu.Unlock()
		for _, m := range meters {
			m.SettleIfDue(now)
		}
	})
	v.loop(ctx, v.cfg.Viewer.BetPoll(), func(now time.Time) {
		user, ok := v.Sessions.Current()
		if !ok {
			return
		}
		v.Market.Evaluate(user.Key(), v.Roster(), now)
	})
	v.loop(ctx, v.cfg.Viewer.AdminPoll(), func(now time.Time) {
		snap, err := v.Console.Load()
		if err != nil {
			return // not signed in as an admin
		}
		v.mu.Lock()
		v.adminSnap = snap
		v.mu.Unlock()
	})
}

// AdminSnapshot returns the console state captured by the last admin
// poll tick. Zero value until an admin session has been observed.
func (v *Viewer) AdminSnapshot() admin.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.adminSnap
}

// Stop cancels the loops and waits for them to drain.
func (v *Viewer) Stop() {
	if v.cancel != nil {
		v.cancel()
	}
	v.wg.Wait()
	v.ctx.Close()
}

func (v *Viewer) loop(ctx context.Context, every time.Duration, tick func(now time.Time)) {
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				tick(now)
			}
		}
	}()
}

// refreshRoster fetches liveness for the configured roster and feeds
// the snapshot into the prediction market. Feed failures degrade to
// offline entries inside the client, so this never blocks.
func (v *Viewer) refreshRoster(ctx context.Context) {
	snapshot := v.Feed.Snapshot(ctx, v.cfg.Viewer.Roster)

	v.mu.Lock()
	v.roster = snapshot
	v.mu.Unlock()

	if _, ok := v.Market.Refresh(snapshot, time.Now()); !ok {
		v.logger.Debug("no prediction event available")
	}

	if user, ok := v.Sessions.Current(); ok {
		v.Tracker.Touch(user.Key(), time.Now())
	}
}
