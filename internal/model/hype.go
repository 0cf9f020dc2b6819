package model

import "time"

// HypeState is the per-room crowd meter. Invariants: Active implies
// EndsAt is in the future at activation time; Amount is zeroed only by
// natural expiry, never by a contribution.
type HypeState struct {
	Amount int   `json:"amount"`
	Active bool  `json:"active"`
	EndsAt int64 `json:"endsAt"`
}

// Due reports whether an active cycle has run past its deadline.
func (h HypeState) Due(now time.Time) bool {
	return h.Active && now.UnixMilli() > h.EndsAt
}

func DecodeHype(raw string, present bool) HypeState {
	h, _ := decode[HypeState](raw, present)
	return h
}
