package reporter_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/tracenet/tracenet/reporter"
)

func TestNopObserverDiscardsEvents(t *testing.T) {
	assert.NotPanics(t, func() {
		reporter.Nop.Notify(reporter.Trace, uuid.New(), nil)
		reporter.Nop.Status(reporter.Status{})
	})
}

func TestFuncsForwardsToCallbacks(t *testing.T) {
	var gotEvent reporter.Event
	var gotStatus reporter.Status

	obs := reporter.Funcs{
		OnNotify: func(e reporter.Event, _ uuid.UUID, _ any) { gotEvent = e },
		OnStatus: func(s reporter.Status) { gotStatus = s },
	}

	obs.Notify(reporter.Block, uuid.New(), "x")
	obs.Status(reporter.Status{Iteration: 3})

	assert.Equal(t, reporter.Block, gotEvent)
	assert.Equal(t, 3, gotStatus.Iteration)
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "TRACE", reporter.Trace.String())
	assert.Equal(t, "EVENT(?)", reporter.Event(255).String())
}
