package model

import "time"

// PredictionEvent is a timed binary-outcome matchup between two live
// streamers: whoever ends their stream first wins for their backers.
// At most one event is active per room at a time.
type PredictionEvent struct {
	ID     string   `json:"id"`
	P1     Streamer `json:"p1"`
	P2     Streamer `json:"p2"`
	Expiry int64    `json:"expiry"` // unix millis
}

func (e PredictionEvent) Expired(now time.Time) bool {
	return now.UnixMilli() > e.Expiry
}

// Opponent returns the entry the voter did not back, matched by slug.
func (e PredictionEvent) Opponent(votedSlug string) Streamer {
	if votedSlug == e.P1.Slug {
		return e.P2
	}
	return e.P1
}

func DecodePrediction(raw string, present bool) (PredictionEvent, bool) {
	return decode[PredictionEvent](raw, present)
}

// BetStatus tracks one voter's stake in one event. Transitions are
// pending -> paid or pending -> lost, terminal thereafter.
type BetStatus string

const (
	BetPending BetStatus = "pending"
	BetPaid    BetStatus = "paid"
	BetLost    BetStatus = "lost"
)

func (s BetStatus) Terminal() bool {
	return s == BetPaid || s == BetLost
}
