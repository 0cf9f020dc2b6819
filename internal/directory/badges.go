package directory

import "github.com/CapOVH/dasssb/internal/model"

// Badge is a selectable chat identity badge. Restricted badges are
// offered only to verified users or admins. Enforcement happens at the
// point of offering, a trust boundary rather than a security guarantee,
// since there is no server authority behind it.
type Badge struct {
	ID         string
	Name       string
	URL        string
	Restricted bool
}

const (
	// FounderBadgeURL is assigned to every user who has not picked one.
	FounderBadgeURL = "/ssb_logo.png"
	// VerifiedBadgeURL is the default badge granted with verification.
	VerifiedBadgeURL = "https://cdn-icons-png.flaticon.com/512/7595/7595571.png"
)

var catalog = []Badge{
	{ID: "founder", Name: "SSB Founder", URL: FounderBadgeURL},
	{ID: "vip", Name: "VIP", URL: "https://cdn-icons-png.flaticon.com/512/6941/6941697.png"},
	{ID: "verified", Name: "Verified", URL: VerifiedBadgeURL, Restricted: true},
}

// BadgesFor returns the badges offered to the given user. Restricted
// entries are filtered out unless the user is verified or an admin.
func BadgesFor(u model.User) []Badge {
	out := make([]Badge, 0, len(catalog))
	for _, b := range catalog {
		if b.Restricted && !u.Verified && !u.IsAdmin() {
			continue
		}
		out = append(out, b)
	}
	return out
}
