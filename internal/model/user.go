// Package model defines the typed records persisted in the key-value
// substrate. The browser original stored untyped JSON blobs and parsed
// them defensively at every read site; here every shape is declared
// once and decoded exactly once, at the storage boundary.
//
// Timestamps are Unix milliseconds throughout, the wire format the
// original blobs used, converted to time.Time only at comparison sites.
package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Ban marks an account suspended until a deadline. A Ban whose deadline
// has passed is treated as no ban and lazily cleared on the next login.
type Ban struct {
	Until  int64  `json:"until"` // unix millis
	Reason string `json:"reason"`
}

// Expired reports whether the ban window has elapsed at now.
func (b Ban) Expired(now time.Time) bool {
	return b.Until <= now.UnixMilli()
}

// User is a directory record. Username keeps display case; the
// directory key is the lower-cased form (see Key).
type User struct {
	Username     string `json:"username"`
	ID           string `json:"id"`
	CreatedAt    int64  `json:"createdAt"`
	PasswordHash string `json:"password,omitempty"` // bcrypt; stripped from public views
	Color        string `json:"color,omitempty"`
	Badge        string `json:"badge,omitempty"` // badge image reference
	Verified     bool   `json:"verified,omitempty"`
	Role         Role   `json:"role,omitempty"`
	Banned       *Ban   `json:"banned,omitempty"`
}

// Key returns the unique directory key: the lower-cased username.
// Usernames differing only in case collide on this key.
func (u User) Key() string {
	return strings.ToLower(u.Username)
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Public strips credentials for return to callers and for the session
// snapshot. The hash stays only in the directory record.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// Directory is the full user map keyed by User.Key. Mutations are
// whole-map read-modify-write sequences (single writer in practice).
type Directory map[string]User

func DecodeDirectory(raw string, present bool) Directory {
	d, ok := decode[Directory](raw, present)
	if !ok {
		return Directory{}
	}
	return d
}

func DecodeUser(raw string, present bool) (User, bool) {
	return decode[User](raw, present)
}

// Millis converts a wall-clock instant to the stored representation.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
