package tracenet_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracenet/tracenet"
	"github.com/tracenet/tracenet/graph"
	"github.com/tracenet/tracenet/reporter"
	"github.com/tracenet/tracenet/value"
)

// literal returns an Acceptor that accepts exactly one occurrence of ch at
// the input position last.End.
func literal(ch byte) graph.Acceptor[string] {
	return graph.AcceptorFunc[string](func(whole string, last graph.Range, out graph.Spectrum) {
		if last.End < len(whole) && whole[last.End] == ch {
			out.Push(last.End, last.End+1)
		}
	})
}

func final[I any]() *graph.Node[I] { return &graph.Node[I]{} }

func TestLiteralMatch(t *testing.T) {
	fin := final[string]()
	entry := &graph.Node[string]{Arcs: []*graph.Arc[string]{
		{Target: fin, Type: graph.Simple, Acceptor: literal('a')},
	}}

	p := tracenet.New[string](entry)
	require.NoError(t, p.Init("a", 0, 1))
	_, err := p.Run()
	require.NoError(t, err)

	traces := p.Traced()
	require.Len(t, traces, 1)
	assert.Equal(t, graph.Range{Begin: 0, End: 1}, traces[0].Range())
}

func TestLiteralMismatchProducesNoTrace(t *testing.T) {
	fin := final[string]()
	entry := &graph.Node[string]{Arcs: []*graph.Arc[string]{
		{Target: fin, Type: graph.Simple, Acceptor: literal('a')},
	}}

	p := tracenet.New[string](entry)
	require.NoError(t, p.Init("b", 0, 1))
	_, err := p.Run()
	require.NoError(t, err)
	assert.Empty(t, p.Traced())
}

// TestAlternationDFSOrdering builds entry --x--> finA (final) and
// entry --x--> finB (final) and runs them over "x", so both branches match
// and the order of the two recorded traces exercises DFS ordering.
func TestAlternationDFSOrdering(t *testing.T) {
	finA := final[string]()
	finB := final[string]()
	entry := &graph.Node[string]{Arcs: []*graph.Arc[string]{
		{Target: finA, Type: graph.Simple, Acceptor: literal('x')},
		{Target: finB, Type: graph.Simple, Acceptor: literal('x')},
	}}

	p := tracenet.New[string](entry)
	require.NoError(t, p.Init("x", 0, 1))
	_, err := p.Run()
	require.NoError(t, err)

	traces := p.Traced()
	require.Len(t, traces, 2)
	// DFS (LIFO) pops the most recently pushed branch first: since arcs are
	// enumerated in order and each spawned descendant is pushed to the back
	// of a stack, the *second* arc (entry->finB) is explored to completion
	// and recorded before the first (entry->finA).
	assert.Same(t, finB, entryTargetOf(t, traces[0]))
	assert.Same(t, finA, entryTargetOf(t, traces[1]))
}

func entryTargetOf(t *testing.T, tr tracenet.Trace[string]) *graph.Node[string] {
	t.Helper()
	return tr.Arc().Target
}

// TestEntanglementPriority builds two arcs from the same origin sharing an
// entanglement group, with different priorities; only the higher-priority
// one should survive to a recorded trace.
func TestEntanglementPriority(t *testing.T) {
	finHigh := final[string]()
	finLow := final[string]()
	entry := &graph.Node[string]{Arcs: []*graph.Arc[string]{
		{Target: finLow, Type: graph.Simple, Acceptor: literal('x'), Entanglement: 1, Priority: 1},
		{Target: finHigh, Type: graph.Simple, Acceptor: literal('x'), Entanglement: 1, Priority: 2},
	}}

	p := tracenet.New[string](entry)
	require.NoError(t, p.Init("x", 0, 1))
	_, err := p.Run()
	require.NoError(t, err)

	traces := p.Traced()
	require.Len(t, traces, 1)
	assert.Same(t, finHigh, traces[0].Arc().Target)
}

// TestPositiveAssertion builds entry with two arcs: a Positive lookahead for
// 'a' (consuming nothing), followed by a Simple arc that actually consumes
// 'a'. The assertion must match without advancing position, so the Simple
// arc afterwards still sees position 0.
func TestPositiveAssertion(t *testing.T) {
	entry := &graph.Node[string]{Arcs: []*graph.Arc[string]{
		{Target: invokeTarget('a'), Type: graph.Positive, Acceptor: epsilon()},
		{Target: final[string](), Type: graph.Simple, Acceptor: literal('a')},
	}}

	p := tracenet.New[string](entry)
	require.NoError(t, p.Init("a", 0, 1))
	_, err := p.Run()
	require.NoError(t, err)

	traces := p.Traced()
	require.Len(t, traces, 1)
	assert.Equal(t, graph.Range{Begin: 0, End: 1}, traces[0].Range())
}

func TestPositiveAssertionFailureProducesNoTrace(t *testing.T) {
	entry := &graph.Node[string]{Arcs: []*graph.Arc[string]{
		{Target: invokeTarget('a'), Type: graph.Positive, Acceptor: epsilon()},
		{Target: final[string](), Type: graph.Simple, Acceptor: literal('b')},
	}}

	p := tracenet.New[string](entry)
	require.NoError(t, p.Init("b", 0, 1))
	_, err := p.Run()
	require.NoError(t, err)
	assert.Empty(t, p.Traced())
}

// TestNegativeAssertionBlocksOnMatch builds entry --Negative(literal a)-->
// --Simple(epsilon)--> final: if the negated sub-network matches, the
// caller (and its optimistic continuation into the Simple arc) must be
// blocked, producing no trace.
func TestNegativeAssertionBlocksOnMatch(t *testing.T) {
	entry := &graph.Node[string]{Arcs: []*graph.Arc[string]{
		{Target: invokeTarget('a'), Type: graph.Negative, Acceptor: epsilon()},
		{Target: final[string](), Type: graph.Simple, Acceptor: epsilon()},
	}}

	p := tracenet.New[string](entry)
	require.NoError(t, p.Init("a", 0, 1))
	_, err := p.Run()
	require.NoError(t, err)
	assert.Empty(t, p.Traced())
}

// TestNegativeAssertionPassesOnMismatch is the same network run over an
// input the negated sub-network does not match: the assertion "succeeds" by
// failing to match, and the optimistic continuation reaches final.
func TestNegativeAssertionPassesOnMismatch(t *testing.T) {
	entry := &graph.Node[string]{Arcs: []*graph.Arc[string]{
		{Target: invokeTarget('a'), Type: graph.Negative, Acceptor: epsilon()},
		{Target: final[string](), Type: graph.Simple, Acceptor: epsilon()},
	}}

	p := tracenet.New[string](entry)
	require.NoError(t, p.Init("b", 0, 1))
	_, err := p.Run()
	require.NoError(t, err)
	assert.Len(t, p.Traced(), 1)
}

// epsilon is an Acceptor that always accepts the empty range at the current
// position — used to open Invoke/Positive/Negative call frames whose actual
// matching happens inside the callee sub-network.
func epsilon() graph.Acceptor[string] {
	return graph.AcceptorFunc[string](func(whole string, last graph.Range, out graph.Spectrum) {
		out.Push(last.End, last.End)
	})
}

// invokeTarget builds a tiny one-node target whose only arc matches ch.
func invokeTarget(ch byte) *graph.Node[string] {
	return &graph.Node[string]{Arcs: []*graph.Arc[string]{
		{Target: final[string](), Type: graph.Simple, Acceptor: literal(ch)},
	}}
}

// TestContextPushPopScoping exercises spec.md §4.9: a value set before
// entering a nested scope is restored by pop after the nested scope mutates
// it locally.
func TestContextPushPopScoping(t *testing.T) {
	var outerAction, innerAction, popAction graph.Action
	const key = "x"

	outerAction = graph.ActionFunc(func(fr graph.Frame) error {
		*fr.Ref(key) = value.OfInt(1)
		return fr.Push(key)
	})
	innerAction = graph.ActionFunc(func(fr graph.Frame) error {
		*fr.Ref(key) = value.OfInt(2)
		return nil
	})
	var observedBeforePop, observedAfterPop int64
	popAction = graph.ActionFunc(func(fr graph.Frame) error {
		v := fr.Val(key)
		n, _ := v.AsInt()
		observedBeforePop = n
		if err := fr.Pop(key); err != nil {
			return err
		}
		v = fr.Val(key)
		n, _ = v.AsInt()
		observedAfterPop = n
		return nil
	})

	popNode := &graph.Node[string]{Actions: []graph.Action{popAction}}
	innerNode := &graph.Node[string]{
		Actions: []graph.Action{innerAction},
		Arcs:    []*graph.Arc[string]{{Target: popNode, Type: graph.Simple, Acceptor: epsilon()}},
	}
	entry := &graph.Node[string]{
		Actions: []graph.Action{outerAction},
		Arcs:    []*graph.Arc[string]{{Target: innerNode, Type: graph.Simple, Acceptor: epsilon()}},
	}

	p := tracenet.New[string](entry)
	require.NoError(t, p.Init("", 0, 0))
	_, err := p.Run()
	require.NoError(t, err)
	require.Len(t, p.Traced(), 1)

	assert.EqualValues(t, 2, observedBeforePop)
	assert.EqualValues(t, 1, observedAfterPop)
}

func TestDenyDropsState(t *testing.T) {
	denyAll := graph.ActionFunc(func(graph.Frame) error { return graph.ErrDeny })
	target := &graph.Node[string]{Actions: []graph.Action{denyAll}}
	entry := &graph.Node[string]{Arcs: []*graph.Arc[string]{
		{Target: target, Type: graph.Simple, Acceptor: epsilon()},
	}}

	p := tracenet.New[string](entry)
	require.NoError(t, p.Init("", 0, 0))
	_, err := p.Run()
	require.NoError(t, err)
	assert.Empty(t, p.Traced())
}

func TestPropagatingActionErrorAbortsRun(t *testing.T) {
	boom := errors.New("boom")
	failing := graph.ActionFunc(func(graph.Frame) error { return boom })
	target := &graph.Node[string]{Actions: []graph.Action{failing}}
	entry := &graph.Node[string]{Arcs: []*graph.Arc[string]{
		{Target: target, Type: graph.Simple, Acceptor: epsilon()},
	}}

	p := tracenet.New[string](entry)
	require.NoError(t, p.Init("", 0, 0))
	_, err := p.Run()
	assert.ErrorIs(t, err, boom)
}

func TestPoolExhaustionSurfacesAsError(t *testing.T) {
	fin := final[string]()
	entry := &graph.Node[string]{Arcs: []*graph.Arc[string]{
		{Target: fin, Type: graph.Simple, Acceptor: literal('a')},
	}}

	p := tracenet.New[string](entry)
	p.StatePoolCapacity = 1 // entry root alone fills it
	require.NoError(t, p.Init("a", 0, 1))
	_, err := p.Run()
	assert.ErrorIs(t, err, tracenet.ErrPoolExhausted)
}

// TestObserverReceivesDereferenceableStateViews wires a custom Observer and
// confirms the subject it receives on a TRACE event is a StateView that can
// actually be inspected, not an opaque pointer — the Observer is spec.md
// §4.10's ambient logging layer, so it must be able to recover Arc/Range
// from the states it is notified about.
func TestObserverReceivesDereferenceableStateViews(t *testing.T) {
	fin := final[string]()
	arc := &graph.Arc[string]{Target: fin, Type: graph.Simple, Acceptor: literal('a')}
	entry := &graph.Node[string]{Arcs: []*graph.Arc[string]{arc}}

	var sawTraceRange graph.Range
	var sawTraceArc *graph.Arc[string]
	var gens []uuid.UUID

	p := tracenet.New[string](entry)
	p.Observer = reporter.Funcs{
		OnNotify: func(event reporter.Event, generation uuid.UUID, subject any) {
			gens = append(gens, generation)
			if event != reporter.Trace {
				return
			}
			view, ok := subject.(tracenet.StateView[string])
			require.True(t, ok, "subject must be a StateView")
			sawTraceRange = view.Range()
			sawTraceArc = view.Arc()
		},
	}

	require.NoError(t, p.Init("a", 0, 1))
	_, err := p.Run()
	require.NoError(t, err)

	require.Len(t, p.Traced(), 1)
	assert.Equal(t, graph.Range{Begin: 0, End: 1}, sawTraceRange)
	assert.Same(t, arc, sawTraceArc)
	require.NotEmpty(t, gens)
	for _, g := range gens {
		assert.Equal(t, gens[0], g)
	}
}

func TestSwapFileBackedProcessor(t *testing.T) {
	fin := final[string]()
	entry := &graph.Node[string]{Arcs: []*graph.Arc[string]{
		{Target: fin, Type: graph.Simple, Acceptor: literal('a')},
	}}

	dir := t.TempDir()
	p := tracenet.New[string](entry)
	p.StateSwapFile = dir + "/states.bin"
	p.ContextSwapFile = dir + "/contexts.bin"

	require.NoError(t, p.Init("a", 0, 1))
	_, err := p.Run()
	require.NoError(t, err)
	require.Len(t, p.Traced(), 1)
	require.NoError(t, p.Close())
}

func TestResetAllowsReuse(t *testing.T) {
	fin := final[string]()
	entry := &graph.Node[string]{Arcs: []*graph.Arc[string]{
		{Target: fin, Type: graph.Simple, Acceptor: literal('a')},
	}}

	p := tracenet.New[string](entry)
	require.NoError(t, p.Init("a", 0, 1))
	_, err := p.Run()
	require.NoError(t, err)
	require.Len(t, p.Traced(), 1)

	p.Reset()
	require.NoError(t, p.Init("a", 0, 1))
	_, err = p.Run()
	require.NoError(t, err)
	assert.Len(t, p.Traced(), 1)
}
