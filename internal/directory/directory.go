// Package directory implements the user registry: registration, login,
// profile updates and the ban/verify/role state the admin console
// mutates. The whole directory is one JSON map under a single storage
// key; every mutation is a read-modify-write of the full map followed
// by a write-through broadcast, which is what makes concurrent admin
// tabs race (an accepted limit of the trust model, see DESIGN.md).
package directory

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/CapOVH/dasssb/internal/apperror"
	"github.com/CapOVH/dasssb/internal/bus"
	"github.com/CapOVH/dasssb/internal/model"
)

// KeyUsers is the storage key holding the full user map.
const KeyUsers = "ssb_users_db"

const (
	minNameLen = 3
	maxNameLen = 16
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// deniedTokens rejects reserved role names and abuse terms. Matching is
// substring, not word-boundary: a name containing a token anywhere is
// rejected, regardless of surrounding characters or case.
var deniedTokens = []string{
	"admin", "mod", "system", "root",
	"fuck", "shit", "retard", "cunt", "dick", "pussy",
}

// SessionUpdater lets profile changes flow into the active session
// snapshot without the directory owning session state.
type SessionUpdater interface {
	// ReplaceIf swaps the snapshot when it belongs to user.Key().
	ReplaceIf(user model.User)
}

// Service owns the user map. All mutations write the full map back.
type Service struct {
	ctx       *bus.Context
	passwords *PasswordService
	sessions  SessionUpdater // optional
	logger    *slog.Logger
	now       func() time.Time
}

func New(ctx *bus.Context, passwords *PasswordService, logger *slog.Logger) *Service {
	return &Service{
		ctx:       ctx,
		passwords: passwords,
		logger:    logger,
		now:       time.Now,
	}
}

// AttachSessions wires the active-session updater for UpdateProfile.
func (s *Service) AttachSessions(su SessionUpdater) {
	s.sessions = su
}

// SetClock overrides the wall clock. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ValidateUsername applies the length, charset and denylist rules.
func ValidateUsername(username string) error {
	lower := strings.ToLower(username)
	if len(lower) < minNameLen {
		return apperror.ValidationFailed("username", "Username must be at least 3 characters.")
	}
	if len(lower) > maxNameLen {
		return apperror.ValidationFailed("username", "Username must be under 16 characters.")
	}
	if !namePattern.MatchString(username) {
		return apperror.ValidationFailed("username", "Only letters, numbers, and underscores allowed.")
	}
	for _, token := range deniedTokens {
		if strings.Contains(lower, token) {
			return apperror.ValidationFailed("username", "Username contains restricted content.")
		}
	}
	return nil
}

// Register validates the name, enforces key uniqueness and inserts a
// new record. The returned view excludes the password hash.
func (s *Service) Register(username, password string) (model.User, error) {
	if err := ValidateUsername(username); err != nil {
		return model.User{}, err
	}

	users := s.load()
	key := strings.ToLower(username)
	if _, taken := users[key]; taken {
		return model.User{}, apperror.Conflict("username", key)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return model.User{}, err
	}

	user := model.User{
		Username:     username, // preserve case for display
		ID:           "user_" + xid.New().String(),
		CreatedAt:    s.now().UnixMilli(),
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	users[key] = user
	s.save(users)

	s.logger.Info("user registered", slog.String("userKey", key))
	return user.Public(), nil
}

// Login checks credentials and ban state. An expired ban is cleared
// and persisted as a side effect of the successful path.
func (s *Service) Login(username, password string) (model.User, error) {
	users := s.load()
	key := strings.ToLower(username)

	record, ok := users[key]
	if !ok {
		return model.User{}, apperror.NotFound("user", key)
	}
	if err := s.passwords.Verify(record.PasswordHash, password); err != nil {
		return model.User{}, apperror.AuthFailed("Incorrect password.")
	}

	if record.Banned != nil {
		if !record.Banned.Expired(s.now()) {
			return model.User{}, apperror.Suspended(
				time.UnixMilli(record.Banned.Until), record.Banned.Reason)
		}
		// Ban window elapsed: lazily clear it.
		record.Banned = nil
		users[key] = record
		s.save(users)
	}

	return record.Public(), nil
}

// ProfileUpdate carries the cosmetic fields a user may change. Nil
// fields are left untouched.
type ProfileUpdate struct {
	Color *string
	Badge *string
}

// UpdateProfile merges cosmetics into the directory record and, when a
// session updater is attached, into the active session snapshot.
func (s *Service) UpdateProfile(userKey string, upd ProfileUpdate) error {
	users := s.load()
	record, ok := users[userKey]
	if !ok {
		return apperror.NotFound("user", userKey)
	}

	if upd.Color != nil {
		record.Color = *upd.Color
	}
	if upd.Badge != nil {
		record.Badge = *upd.Badge
	}
	users[userKey] = record
	s.save(users)

	if s.sessions != nil {
		s.sessions.ReplaceIf(record.Public())
	}
	return nil
}

// Lookup returns the directory record for a key, hash included. Used
// by the admin console and profile cards.
func (s *Service) Lookup(userKey string) (model.User, bool) {
	users := s.load()
	u, ok := users[userKey]
	return u, ok
}

// All returns the current directory map.
func (s *Service) All() model.Directory {
	return s.load()
}

// Save writes a full directory map back and broadcasts it. Exposed for
// the admin console, whose mutations are whole-map writes by design.
func (s *Service) Save(users model.Directory) {
	s.save(users)
}

func (s *Service) load() model.Directory {
	return model.DecodeDirectory(s.ctx.Get(KeyUsers))
}

func (s *Service) save(users model.Directory) {
	s.ctx.Set(KeyUsers, model.Encode(users))
}
