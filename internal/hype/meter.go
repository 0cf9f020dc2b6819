// Package hype implements the per-room crowd meter: a shared counter
// that contributions accumulate into, with threshold-triggered
// activation and time-boxed additive extension.
//
// State machine (idle == !Active, active == Active):
//
//	idle   -> active   when a contribution lifts Amount to >= Threshold;
//	                   EndsAt = now + ActiveWindow
//	active -> active   any further contribution extends EndsAt by
//	                   Extension (additive, never a reset)
//	active -> idle     first poll observing now > EndsAt zeroes Amount
//
// Amount is zeroed only on natural expiry; no forced reset exists.
package hype

import (
	"log/slog"
	"time"

	"github.com/CapOVH/dasssb/internal/bus"
	"github.com/CapOVH/dasssb/internal/model"
)

const (
	// Threshold is the cumulative amount that activates the meter.
	Threshold = 500
	// ActiveWindow is the initial active duration on activation.
	ActiveWindow = 5 * time.Minute
	// Extension is added to the deadline per contribution while active.
	Extension = 30 * time.Second
)

// StateKey returns the storage key for a room's hype state.
func StateKey(roomID string) string {
	return "ssb_hype_" + roomID
}

// Wallet is the funding side of a contribution. A failed debit aborts
// the contribution with no state change.
type Wallet interface {
	Debit(amount int) error
}

// Announcer posts the system chat message for a contribution, the one
// effect the meter and chat share.
type Announcer interface {
	AnnounceHype(username string, amount int) model.ChatMessage
}

type Meter struct {
	ctx    *bus.Context
	roomID string
	wallet Wallet
	chat   Announcer
	logger *slog.Logger
	now    func() time.Time
}

func NewMeter(ctx *bus.Context, roomID string, wallet Wallet, chat Announcer, logger *slog.Logger) *Meter {
	return &Meter{
		ctx:    ctx,
		roomID: roomID,
		wallet: wallet,
		chat:   chat,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the wall clock. Tests only.
func (m *Meter) SetClock(now func() time.Time) {
	m.now = now
}

// State reads the current room state; missing or malformed is idle.
func (m *Meter) State() model.HypeState {
	return model.DecodeHype(m.ctx.Get(StateKey(m.roomID)))
}

// Contribute debits the wallet, applies the contribution and announces
// it in chat. An insufficient balance aborts before any state change.
func (m *Meter) Contribute(username string, amount int) (model.HypeState, error) {
	if err := m.wallet.Debit(amount); err != nil {
		return m.State(), err
	}

	state := m.State()
	state.Amount += amount

	switch {
	case !state.Active && state.Amount >= Threshold:
		state.Active = true
		state.EndsAt = m.now().Add(ActiveWindow).UnixMilli()
		m.logger.Info("hype activated",
			slog.String("room", m.roomID), slog.Int("amount", state.Amount))
	case state.Active:
		state.EndsAt += Extension.Milliseconds()
	}

	m.write(state)
	if m.chat != nil {
		m.chat.AnnounceHype(username, amount)
	}
	return state, nil
}

// SettleIfDue transitions active -> idle once the deadline has passed,
// zeroing the amount. Idempotent: safe to call from any timer tick,
// including after the transition already happened.
func (m *Meter) SettleIfDue(now time.Time) bool {
	state := m.State()
	if !state.Due(now) {
		return false
	}
	m.write(model.HypeState{})
	m.logger.Info("hype cycle ended", slog.String("room", m.roomID))
	return true
}

// OnChange subscribes to state written by other tabs.
func (m *Meter) OnChange(fn func(model.HypeState)) {
	m.ctx.Subscribe(StateKey(m.roomID), func(raw string, present bool) {
		fn(model.DecodeHype(raw, present))
	})
}

func (m *Meter) write(state model.HypeState) {
	m.ctx.Set(StateKey(m.roomID), model.Encode(state))
}
