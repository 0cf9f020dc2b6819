// Package prediction runs the "who ends first" mini-game: a timed
// binary-outcome event between two live streamers, one vote per user
// per event, settled by observing which side goes offline first.
package prediction

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/rs/xid"

	"github.com/CapOVH/dasssb/internal/apperror"
	"github.com/CapOVH/dasssb/internal/bus"
	"github.com/CapOVH/dasssb/internal/model"
)

const (
	// EventDuration is the voting window of a generated event.
	EventDuration = 20 * time.Minute
	// Payout is credited when the voter's pick goes offline first.
	Payout = 100
	// ParticipationCredit is awarded for casting any vote.
	ParticipationCredit = 1
)

// KeyActive holds the single active event for the room.
const KeyActive = "ssb_active_prediction"

func voteKey(eventID, userKey string) string {
	return "ssb_prediction_vote_" + eventID + "_" + userKey
}

func statusKey(eventID, userKey string) string {
	return "ssb_prediction_status_" + eventID + "_" + userKey
}

func dismissedKey(eventID string) string {
	return "ssb_prediction_dismissed_" + eventID
}

// Wallet is the payout side of the market.
type Wallet interface {
	Credit(amount int)
}

type Market struct {
	ctx      *bus.Context
	wallet   Wallet
	logger   *slog.Logger
	now      func() time.Time
	rand     *rand.Rand
	onPayout func(event model.PredictionEvent, target model.Streamer)
}

func NewMarket(ctx *bus.Context, wallet Wallet, logger *slog.Logger) *Market {
	return &Market{
		ctx:    ctx,
		wallet: wallet,
		logger: logger,
		now:    time.Now,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetClock overrides the wall clock. Tests only.
func (m *Market) SetClock(now func() time.Time) {
	m.now = now
}

// SetRand overrides the matchup source. Tests only.
func (m *Market) SetRand(r *rand.Rand) {
	m.rand = r
}

// OnPayout registers the transient win-notification callback.
func (m *Market) OnPayout(fn func(event model.PredictionEvent, target model.Streamer)) {
	m.onPayout = fn
}

// Active returns the stored event, expired or not.
func (m *Market) Active() (model.PredictionEvent, bool) {
	return model.DecodePrediction(m.ctx.Get(KeyActive))
}

// Refresh is the only generation site, driven by the roster refresh
// cycle. A still-running stored event is returned as is. When the
// stored event is absent or expired, a new one is generated from two
// distinct live streamers picked uniformly without replacement; with
// fewer than two live, no event is created and false is returned so
// callers clear the widget from view. Expiry alone never regenerates;
// the next refresh cycle does.
func (m *Market) Refresh(streamers []model.Streamer, now time.Time) (model.PredictionEvent, bool) {
	if event, ok := m.Active(); ok && !event.Expired(now) {
		return event, true
	}
	return m.generate(streamers, now)
}

func (m *Market) generate(streamers []model.Streamer, now time.Time) (model.PredictionEvent, bool) {
	var live []model.Streamer
	for _, s := range streamers {
		if s.Live() {
			live = append(live, s)
		}
	}
	if len(live) < 2 {
		return model.PredictionEvent{}, false
	}

	i := m.rand.Intn(len(live))
	j := m.rand.Intn(len(live) - 1)
	if j >= i {
		j++
	}

	event := model.PredictionEvent{
		ID:     "pred_" + xid.New().String(),
		P1:     live[i],
		P2:     live[j],
		Expiry: now.Add(EventDuration).UnixMilli(),
	}
	m.ctx.Set(KeyActive, model.Encode(event))
	m.logger.Info("prediction generated",
		slog.String("event", event.ID),
		slog.String("p1", event.P1.Slug),
		slog.String("p2", event.P2.Slug),
	)
	return event, true
}

// Vote records the user's pick. First vote wins: a second attempt for
// the same (event, user) fails with a conflict and changes nothing.
// Casting a vote awards the participation credit and opens a pending
// bet.
func (m *Market) Vote(eventID, userKey, choiceSlug string) error {
	event, ok := m.Active()
	if !ok || event.ID != eventID {
		return apperror.NotFound("prediction", eventID)
	}
	if choiceSlug != event.P1.Slug && choiceSlug != event.P2.Slug {
		return apperror.ValidationFailed("choice", "choice is not part of this matchup")
	}
	if _, voted := m.ctx.Get(voteKey(eventID, userKey)); voted {
		return apperror.Conflict("vote", eventID)
	}

	m.ctx.Set(voteKey(eventID, userKey), choiceSlug)
	m.ctx.Set(statusKey(eventID, userKey), string(model.BetPending))
	m.wallet.Credit(ParticipationCredit)
	return nil
}

// VoteOf returns the slug the user backed, if any.
func (m *Market) VoteOf(eventID, userKey string) (string, bool) {
	return m.ctx.Get(voteKey(eventID, userKey))
}

// Status returns the user's bet status for the event; empty when no
// bet exists.
func (m *Market) Status(eventID, userKey string) model.BetStatus {
	raw, ok := m.ctx.Get(statusKey(eventID, userKey))
	if !ok {
		return ""
	}
	return model.BetStatus(raw)
}

// Evaluate settles the user's pending bet against a liveness snapshot.
// The voted target is checked before the opponent, so a simultaneous
// dual-offline resolves as a win. Both outcomes are terminal; repeat
// calls after settlement are no-ops, so a 1s timer can drive this
// safely.
func (m *Market) Evaluate(userKey string, streamers []model.Streamer, now time.Time) (model.BetStatus, bool) {
	event, ok := m.Active()
	if !ok {
		return "", false
	}
	status := m.Status(event.ID, userKey)
	if status != model.BetPending {
		return status, false
	}
	votedSlug, ok := m.VoteOf(event.ID, userKey)
	if !ok {
		return status, false
	}

	bySlug := make(map[string]model.Streamer, len(streamers))
	for _, s := range streamers {
		bySlug[s.Slug] = s
	}

	if target, ok := bySlug[votedSlug]; ok && !target.Live() {
		m.ctx.Set(statusKey(event.ID, userKey), string(model.BetPaid))
		m.wallet.Credit(Payout)
		m.logger.Info("bet paid",
			slog.String("event", event.ID),
			slog.String("target", target.Slug),
		)
		if m.onPayout != nil {
			m.onPayout(event, target)
		}
		return model.BetPaid, true
	}

	opponent := event.Opponent(votedSlug)
	if opp, ok := bySlug[opponent.Slug]; ok && !opp.Live() {
		m.ctx.Set(statusKey(event.ID, userKey), string(model.BetLost))
		return model.BetLost, true
	}

	return model.BetPending, false
}

// Dismiss hides the widget for this event only. The event and any
// pending bet keep running; a newly generated event is visible again.
func (m *Market) Dismiss(eventID string) {
	m.ctx.Set(dismissedKey(eventID), "true")
}

// Dismissed reports whether the user hid the widget for this event.
func (m *Market) Dismissed(eventID string) bool {
	_, ok := m.ctx.Get(dismissedKey(eventID))
	return ok
}
