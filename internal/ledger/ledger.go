// Package ledger tracks the per-profile coin balance that funds hype
// contributions and receives prediction payouts. The balance is a bare
// integer under one key; Debit is read-check-write with no cross-tab
// guard, relying on low write frequency (shared-resource policy).
package ledger

import (
	"log/slog"
	"strconv"

	"github.com/CapOVH/dasssb/internal/apperror"
	"github.com/CapOVH/dasssb/internal/bus"
)

// KeyPoints is the storage key for the coin balance.
const KeyPoints = "ssb_points"

// EventPointsUpdated is announced in-context after every balance change.
const EventPointsUpdated = "ssbPointsUpdated"

type Ledger struct {
	ctx    *bus.Context
	logger *slog.Logger
}

func New(ctx *bus.Context, logger *slog.Logger) *Ledger {
	return &Ledger{ctx: ctx, logger: logger}
}

// Balance reads the current balance. A missing or malformed value is
// zero.
func (l *Ledger) Balance() int {
	raw, ok := l.ctx.Get(KeyPoints)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// Credit adds amount to the balance.
func (l *Ledger) Credit(amount int) {
	l.write(l.Balance() + amount)
}

// Debit subtracts amount, failing with a resource error when the
// balance is insufficient. On failure nothing changes.
func (l *Ledger) Debit(amount int) error {
	balance := l.Balance()
	if balance < amount {
		return apperror.Insufficient("coins", amount, balance)
	}
	l.write(balance - amount)
	return nil
}

func (l *Ledger) write(balance int) {
	l.ctx.Set(KeyPoints, strconv.Itoa(balance))
	l.ctx.Announce(EventPointsUpdated)
}
