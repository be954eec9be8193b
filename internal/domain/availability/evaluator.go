package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultStaleAfter is how long a doctor's stored online flag is trusted.
const DefaultStaleAfter = time.Hour

const (
	ReasonFresh              = "fresh"
	ReasonDefaultedAvailable = "defaulted-available"
)

// Record is the availability slice of a doctor record.
type Record struct {
	DoctorID                 uuid.UUID
	IsOnline                 bool
	LastAvailabilityUpdateAt time.Time
}

// Result is the availability a caller should present.
type Result struct {
	EffectiveStatus bool   `json:"effective_status"`
	Reason          string `json:"reason"`
	WroteBack       bool   `json:"wrote_back"`
}

// Resetter persists the stale reset. The update must only apply while the
// stored timestamp still equals seen; it reports whether a row changed.
type Resetter interface {
	ResetAvailabilityIfStale(ctx context.Context, id uuid.UUID, seen, now time.Time) (bool, error)
}

// Evaluator decides a doctor's effective availability. A stored flag older
// than the staleness window is forced back to available and written back.
type Evaluator struct {
	window   time.Duration
	resetter Resetter
	clock    Clock
	logger   zerolog.Logger
}

func NewEvaluator(window time.Duration, resetter Resetter, logger zerolog.Logger) *Evaluator {
	if window <= 0 {
		window = DefaultStaleAfter
	}
	return &Evaluator{
		window:   window,
		resetter: resetter,
		clock:    SystemClock{},
		logger:   logger.With().Str("component", "availability").Logger(),
	}
}

// SetClock replaces the clock used by EvaluateNow.
func (e *Evaluator) SetClock(c Clock) {
	e.clock = c
}

func (e *Evaluator) Window() time.Duration { return e.window }

// EvaluateNow evaluates rec at the evaluator's clock time.
func (e *Evaluator) EvaluateNow(ctx context.Context, rec Record) Result {
	return e.Evaluate(ctx, rec, e.clock.Now())
}

// Evaluate never fails. A failed or lost write-back is logged and the
// computed status is still returned with WroteBack false.
func (e *Evaluator) Evaluate(ctx context.Context, rec Record, now time.Time) Result {
	if now.Sub(rec.LastAvailabilityUpdateAt) < e.window {
		return Result{EffectiveStatus: rec.IsOnline, Reason: ReasonFresh}
	}

	res := Result{EffectiveStatus: true, Reason: ReasonDefaultedAvailable}
	if e.resetter == nil {
		return res
	}

	applied, err := e.resetter.ResetAvailabilityIfStale(ctx, rec.DoctorID, rec.LastAvailabilityUpdateAt, now)
	if err != nil {
		e.logger.Error().Err(err).
			Str("doctor_id", rec.DoctorID.String()).
			Msg("availability write-back failed")
		return res
	}
	if !applied {
		// A toggle landed between our read and the reset; it wins.
		e.logger.Debug().
			Str("doctor_id", rec.DoctorID.String()).
			Time("seen", rec.LastAvailabilityUpdateAt).
			Msg("availability write-back skipped, record changed")
		return res
	}
	res.WroteBack = true
	return res
}
