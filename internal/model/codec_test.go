package model

import (
	"testing"
	"time"
)

func TestDecodeFailClosed(t *testing.T) {
	t.Run("absent value", func(t *testing.T) {
		if _, ok := DecodeUser("", false); ok {
			t.Fatal("DecodeUser() should report absent for missing value")
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		if _, ok := DecodeUser(`{"username":`, true); ok {
			t.Fatal("DecodeUser() should report absent for malformed JSON")
		}
	})

	t.Run("wrong shape", func(t *testing.T) {
		// A JSON array cannot decode into a User object.
		if _, ok := DecodeUser(`[1,2,3]`, true); ok {
			t.Fatal("DecodeUser() should report absent for wrong shape")
		}
	})
}

func TestDecodeDirectory_MalformedYieldsEmptyMap(t *testing.T) {
	d := DecodeDirectory(`not json`, true)
	if d == nil {
		t.Fatal("DecodeDirectory() returned nil map")
	}
	if len(d) != 0 {
		t.Fatalf("DecodeDirectory() = %d entries, want 0", len(d))
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	u := User{Username: "Reese", ID: "user_1", Role: RoleAdmin}
	got, ok := DecodeUser(Encode(u), true)
	if !ok {
		t.Fatal("DecodeUser() failed on encoded value")
	}
	if got.Username != "Reese" || got.Role != RoleAdmin {
		t.Errorf("round trip = %+v, want %+v", got, u)
	}
}

func TestBanExpired(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	past := Ban{Until: 999_999}
	future := Ban{Until: 1_000_001}

	if !past.Expired(now) {
		t.Error("past ban should be expired")
	}
	if future.Expired(now) {
		t.Error("future ban should not be expired")
	}
	// Boundary: a deadline equal to now counts as elapsed.
	if !(Ban{Until: 1_000_000}).Expired(now) {
		t.Error("ban ending exactly now should be expired")
	}
}

func TestUserKeyAndPublic(t *testing.T) {
	u := User{Username: "ReeseGamer", PasswordHash: "$2a$..."}
	if u.Key() != "reesegamer" {
		t.Errorf("Key() = %q, want %q", u.Key(), "reesegamer")
	}
	if u.Public().PasswordHash != "" {
		t.Error("Public() should strip the password hash")
	}
	if u.PasswordHash == "" {
		t.Error("Public() must not mutate the receiver")
	}
}
