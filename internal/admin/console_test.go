package admin

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/CapOVH/dasssb/internal/apperror"
	"github.com/CapOVH/dasssb/internal/bus"
	"github.com/CapOVH/dasssb/internal/directory"
	"github.com/CapOVH/dasssb/internal/model"
	"github.com/CapOVH/dasssb/internal/session"
	"github.com/CapOVH/dasssb/internal/stats"
	"github.com/CapOVH/dasssb/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testTab bundles one tab's services over a shared origin.
type testTab struct {
	users    *directory.Service
	sessions *session.Manager
	console  *Console
}

func openTab(origin *bus.Origin) *testTab {
	ctx := origin.OpenContext()
	logger := testLogger()
	sessions := session.New(ctx, logger)
	users := directory.New(ctx, directory.NewPasswordServiceForTest(bcrypt.MinCost), logger)
	tracker := stats.NewTracker(ctx, logger)
	console := NewConsole(ctx, users, sessions, tracker, "reese", logger)
	return &testTab{users: users, sessions: sessions, console: console}
}

// seed registers a user and optionally promotes them.
func seed(t *testing.T, tab *testTab, username string, role model.Role) {
	t.Helper()
	if _, err := tab.users.Register(username, "pw"); err != nil {
		t.Fatalf("seed %s: %v", username, err)
	}
	if role != model.RoleAdmin {
		return
	}
	users := tab.users.All()
	u := users[model.User{Username: username}.Key()]
	u.Role = model.RoleAdmin
	users[u.Key()] = u
	tab.users.Save(users)
}

func signIn(t *testing.T, tab *testTab, username string) {
	t.Helper()
	record, ok := tab.users.Lookup(model.User{Username: username}.Key())
	if !ok {
		t.Fatalf("signIn: %s not registered", username)
	}
	tab.sessions.Login(record.Public())
}

func TestAuthorize(t *testing.T) {
	origin := bus.NewOrigin(storage.NewMemory())
	tab := openTab(origin)
	seed(t, tab, "pleb", model.RoleUser)
	seed(t, tab, "mako", model.RoleAdmin)

	t.Run("no session", func(t *testing.T) {
		if _, err := tab.console.Authorize(); !errors.Is(err, apperror.ErrForbidden) {
			t.Errorf("error = %v, want forbidden", err)
		}
	})

	t.Run("plain user", func(t *testing.T) {
		signIn(t, tab, "pleb")
		if _, err := tab.console.Authorize(); !errors.Is(err, apperror.ErrForbidden) {
			t.Errorf("error = %v, want forbidden", err)
		}
	})

	t.Run("admin role", func(t *testing.T) {
		signIn(t, tab, "mako")
		if _, err := tab.console.Authorize(); err != nil {
			t.Errorf("admin rejected: %v", err)
		}
	})

	t.Run("super admin without role", func(t *testing.T) {
		seed(t, tab, "reese", model.RoleUser)
		signIn(t, tab, "reese")
		if _, err := tab.console.Authorize(); err != nil {
			t.Errorf("super admin username rejected: %v", err)
		}
	})
}

func TestBan(t *testing.T) {
	origin := bus.NewOrigin(storage.NewMemory())
	tab := openTab(origin)
	seed(t, tab, "mako", model.RoleAdmin)
	seed(t, tab, "troll", model.RoleUser)
	signIn(t, tab, "mako")

	now := time.UnixMilli(1_000_000)
	tab.console.SetClock(func() time.Time { return now })

	if err := tab.console.Ban("troll", 24); err != nil {
		t.Fatalf("Ban() error = %v", err)
	}

	record, _ := tab.users.Lookup("troll")
	if record.Banned == nil {
		t.Fatal("target has no ban")
	}
	if record.Banned.Until != now.Add(24*time.Hour).UnixMilli() {
		t.Errorf("Until = %d, want now+24h", record.Banned.Until)
	}
	if record.Banned.Reason != "Admin Console Action" {
		t.Errorf("Reason = %q", record.Banned.Reason)
	}

	// The banned user cannot sign in while the window is open.
	tab.users.SetClock(func() time.Time { return now })
	if _, err := tab.users.Login("troll", "pw"); !errors.Is(err, apperror.ErrAuth) {
		t.Errorf("Login() of banned user error = %v, want auth failure", err)
	}
}

func TestBan_RefusesAdminTargets(t *testing.T) {
	origin := bus.NewOrigin(storage.NewMemory())
	tab := openTab(origin)
	seed(t, tab, "mako", model.RoleAdmin)
	seed(t, tab, "reese", model.RoleAdmin)

	// Even the super admin cannot ban a fellow admin.
	signIn(t, tab, "reese")
	if err := tab.console.Ban("mako", 1); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Ban(admin) error = %v, want forbidden", err)
	}
	record, _ := tab.users.Lookup("mako")
	if record.Banned != nil {
		t.Error("refused ban must not mutate the target")
	}
}

func TestUnban(t *testing.T) {
	origin := bus.NewOrigin(storage.NewMemory())
	tab := openTab(origin)
	seed(t, tab, "mako", model.RoleAdmin)
	seed(t, tab, "troll", model.RoleUser)
	signIn(t, tab, "mako")

	if err := tab.console.Ban("troll", 24); err != nil {
		t.Fatalf("Ban() error = %v", err)
	}
	if err := tab.console.Unban("troll"); err != nil {
		t.Fatalf("Unban() error = %v", err)
	}

	record, _ := tab.users.Lookup("troll")
	if record.Banned != nil {
		t.Error("ban should be cleared")
	}
}

func TestToggleVerified(t *testing.T) {
	origin := bus.NewOrigin(storage.NewMemory())
	tab := openTab(origin)
	seed(t, tab, "mako", model.RoleAdmin)
	seed(t, tab, "pleb", model.RoleUser)
	signIn(t, tab, "mako")

	if err := tab.console.ToggleVerified("pleb"); err != nil {
		t.Fatalf("ToggleVerified() error = %v", err)
	}
	record, _ := tab.users.Lookup("pleb")
	if !record.Verified {
		t.Error("user should be verified")
	}
	if record.Badge != directory.VerifiedBadgeURL {
		t.Errorf("Badge = %q, want verified default", record.Badge)
	}

	if err := tab.console.ToggleVerified("pleb"); err != nil {
		t.Fatalf("second ToggleVerified() error = %v", err)
	}
	record, _ = tab.users.Lookup("pleb")
	if record.Verified {
		t.Error("second toggle should clear verification")
	}
}

func TestToggleAdminRole_SuperOnly(t *testing.T) {
	origin := bus.NewOrigin(storage.NewMemory())
	tab := openTab(origin)
	seed(t, tab, "mako", model.RoleAdmin)
	seed(t, tab, "reese", model.RoleUser)
	seed(t, tab, "pleb", model.RoleUser)

	signIn(t, tab, "mako")
	if err := tab.console.ToggleAdminRole("pleb"); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("regular admin toggled roles: %v", err)
	}

	signIn(t, tab, "reese")
	if err := tab.console.ToggleAdminRole("pleb"); err != nil {
		t.Fatalf("ToggleAdminRole() error = %v", err)
	}
	record, _ := tab.users.Lookup("pleb")
	if !record.IsAdmin() {
		t.Error("target should be promoted")
	}

	if err := tab.console.ToggleAdminRole("pleb"); err != nil {
		t.Fatalf("demotion error = %v", err)
	}
	record, _ = tab.users.Lookup("pleb")
	if record.IsAdmin() {
		t.Error("second toggle should demote")
	}
}

func TestMutationsVisibleFromOtherTab(t *testing.T) {
	origin := bus.NewOrigin(storage.NewMemory())
	tabA := openTab(origin)
	tabB := openTab(origin)

	seed(t, tabA, "mako", model.RoleAdmin)
	seed(t, tabA, "troll", model.RoleUser)
	signIn(t, tabA, "mako")
	signIn(t, tabB, "mako")

	if err := tabA.console.Ban("troll", 24); err != nil {
		t.Fatalf("Ban() error = %v", err)
	}

	// tabB's next poll sees the ban through the shared store.
	snap, err := tabB.console.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.Users["troll"].Banned == nil {
		t.Error("ban not visible from the other tab")
	}
	if len(snap.Logs) == 0 {
		t.Error("moderation log entry not visible from the other tab")
	}
}

// Two consoles that read the directory, then both write, lose one of
// the edits: last write wins over the whole map. This is the accepted
// concurrency model of whole-map mutations, pinned here so a future
// change to per-key writes shows up as a test failure.
func TestConcurrentConsoleEdits_LastWriteWins(t *testing.T) {
	origin := bus.NewOrigin(storage.NewMemory())
	tabA := openTab(origin)
	tabB := openTab(origin)

	seed(t, tabA, "mako", model.RoleAdmin)
	seed(t, tabA, "troll_one", model.RoleUser)
	seed(t, tabA, "troll_two", model.RoleUser)

	// Both tabs read the same starting map.
	usersA := tabA.users.All()
	usersB := tabB.users.All()

	uA := usersA["troll_one"]
	uA.Verified = true
	usersA["troll_one"] = uA
	tabA.users.Save(usersA)

	uB := usersB["troll_two"]
	uB.Verified = true
	usersB["troll_two"] = uB
	tabB.users.Save(usersB)

	final := tabA.users.All()
	if final["troll_one"].Verified {
		t.Error("tabA's edit survived; expected it clobbered by tabB's stale map")
	}
	if !final["troll_two"].Verified {
		t.Error("tabB's edit should be the surviving write")
	}
}

func TestOverview(t *testing.T) {
	origin := bus.NewOrigin(storage.NewMemory())
	tab := openTab(origin)
	seed(t, tab, "mako", model.RoleAdmin)
	signIn(t, tab, "mako")

	now := time.UnixMilli(10_000_000)
	tab.console.SetClock(func() time.Time { return now })

	tracker := stats.NewTracker(origin.OpenContext(), testLogger())
	tracker.Record("active_user", "cheesur", 90*time.Second, now.Add(-time.Minute))
	tracker.Record("idle_user", "adinross", 30*time.Second, now.Add(-time.Hour))

	overview, err := tab.console.Overview()
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if overview.ActiveUsers != 1 {
		t.Errorf("ActiveUsers = %d, want 1", overview.ActiveUsers)
	}
	wantTotal := (90 * time.Second).Milliseconds() + (30 * time.Second).Milliseconds()
	if overview.TotalTimeMs != wantTotal {
		t.Errorf("TotalTimeMs = %d, want %d", overview.TotalTimeMs, wantTotal)
	}
}
