package tracenet

import (
	"errors"
	"fmt"

	"github.com/tracenet/tracenet/graph"
	"github.com/tracenet/tracenet/internal/pool"
	"github.com/tracenet/tracenet/value"
)

// Sentinels re-exported from the leaf packages, so callers only need to
// import tracenet to match errors with errors.Is (spec.md §7).
var (
	ErrBadCast              = value.ErrBadCast
	ErrDivisionByZero       = value.ErrDivisionByZero
	ErrIncomparableOperands = value.ErrIncomparableOperands
	ErrPoolExhausted        = pool.ErrExhausted
	ErrDeny                 = graph.ErrDeny
)

// ErrLogicViolation is the sentinel behind every LogicViolation error
// (spec.md §7): a fatal, unrecoverable contract breach — a malformed
// network, a push/pop mismatch, or any other condition the Processor cannot
// proceed past. A Processor that returns one from Run is left in a state
// only Reset can recover.
var ErrLogicViolation = errors.New("tracenet: logic violation")

// LogicViolation carries additional context for an ErrLogicViolation.
type LogicViolation struct {
	Msg string
}

func (e *LogicViolation) Error() string { return "tracenet: logic violation: " + e.Msg }

func (e *LogicViolation) Unwrap() error { return ErrLogicViolation }

func logicViolationf(format string, args ...any) error {
	return &LogicViolation{Msg: fmt.Sprintf(format, args...)}
}
