package tracenet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/tracenet/tracenet/graph"
	"github.com/tracenet/tracenet/internal/intern"
	"github.com/tracenet/tracenet/internal/pool"
	"github.com/tracenet/tracenet/reporter"
	"github.com/tracenet/tracenet/value"
)

// DefaultPoolCapacity is used for both the state and context arenas when a
// Processor's *PoolCapacity field is left at zero.
const DefaultPoolCapacity = 1 << 16

// Processor runs a single input through a network (spec.md §4). Construct
// one with New (which takes the network's entry node), seed it with an input
// with Init, then call Run.
// A Processor may be reused across inputs by calling Reset between runs; the
// network itself (the graph.Node tree) is read-only and may be shared by
// many concurrent Processors.
type Processor[I any] struct {
	// EntryNode is the network's entry point — the first Node whose Arcs
	// are tried against the input. Set before calling Init.
	EntryNode *graph.Node[I]
	// EntryLabel is the label the virtual entry arc carries. It is stored on
	// that arc only; the Processor does not compose it with the labels of
	// the entry node's own arcs (Label.Advance is not called during a run).
	EntryLabel graph.Label

	// StatePoolCapacity bounds the number of live States at once; zero
	// means DefaultPoolCapacity.
	StatePoolCapacity int
	// ContextPoolCapacity bounds the number of live Contexts at once; zero
	// means DefaultPoolCapacity.
	ContextPoolCapacity int

	// StateSwapFile and ContextSwapFile, if set, back the respective arena
	// with a memory-mapped file at that path instead of heap memory
	// (spec.md §3's Pool file-backing option). Leave unset for the default
	// heap-backed arena.
	StateSwapFile   string
	ContextSwapFile string

	// Strings interns the label/key text the network and its actions use.
	// A zero Table is ready to use; share one Table across Processors
	// running the same network to avoid re-interning identical strings.
	Strings *intern.Table

	// Observer receives lifecycle events as Run executes, nil-safe (unset
	// behaves like reporter.Nop).
	Observer reporter.Observer

	statePool *pool.Arena[State[I]]
	ctxPool   *pool.Arena[Context]

	input      I
	inputEnd   int
	virtual    graph.Arc[I]
	generation uuid.UUID

	queue      deque[pool.Pointer[State[I]]]
	traces     []pool.Pointer[State[I]]
	deferred   []pool.Pointer[State[I]]
	bfsMode    bool
	iterations int

	pendingErr error
}

// New constructs a Processor targeting entry. Its pool capacities and
// Observer may be set directly on the returned value before Init.
func New[I any](entry *graph.Node[I]) *Processor[I] {
	return &Processor[I]{EntryNode: entry}
}

func (p *Processor[I]) observer() reporter.Observer {
	if p.Observer == nil {
		return reporter.Nop
	}
	return p.Observer
}

func (p *Processor[I]) notify(event reporter.Event, sp pool.Pointer[State[I]]) {
	p.observer().Notify(event, p.generation, StateView[I]{p, sp})
}

// Init seeds the Processor with input and the range of it that is actually
// in scope ([begin, end)), and enqueues the root State at the network's
// entry (spec.md §4.4, §4.8). It allocates the state and context pools on
// first use.
func (p *Processor[I]) Init(input I, begin, end int) error {
	if p.EntryNode == nil {
		return logicViolationf("Processor.EntryNode is nil")
	}
	if p.statePool == nil {
		cap := p.StatePoolCapacity
		if cap == 0 {
			cap = DefaultPoolCapacity
		}
		if p.StateSwapFile != "" {
			sp, err := pool.Open[State[I]](p.StateSwapFile, cap)
			if err != nil {
				return fmt.Errorf("tracenet: opening state swap file: %w", err)
			}
			p.statePool = sp
		} else {
			p.statePool = pool.New[State[I]](cap)
		}
	}
	if p.ctxPool == nil {
		cap := p.ContextPoolCapacity
		if cap == 0 {
			cap = DefaultPoolCapacity
		}
		if p.ContextSwapFile != "" {
			cp, err := pool.Open[Context](p.ContextSwapFile, cap)
			if err != nil {
				return fmt.Errorf("tracenet: opening context swap file: %w", err)
			}
			p.ctxPool = cp
		} else {
			p.ctxPool = pool.New[Context](cap)
		}
	}
	if p.Strings == nil {
		p.Strings = &intern.Table{}
	}

	p.input = input
	p.inputEnd = end
	p.virtual = graph.Arc[I]{Target: p.EntryNode, Type: graph.Simple, Label: p.EntryLabel}
	p.generation = uuid.New()

	root := State[I]{kind: Common, arc: &p.virtual, rng: graph.Range{Begin: begin, End: begin}}
	rp, err := p.statePool.Allocate(root)
	if err != nil {
		return fmt.Errorf("tracenet: seeding entry state: %w", err)
	}
	p.queue.PushBack(rp)
	p.notify(reporter.Push, rp)
	return nil
}

// Reset discards all state and prepares the Processor for a new Init call.
// Traces and any data derived from them are invalidated.
func (p *Processor[I]) Reset() {
	if p.statePool != nil {
		p.statePool.Clear()
	}
	if p.ctxPool != nil {
		p.ctxPool.Clear()
	}
	p.queue = deque[pool.Pointer[State[I]]]{}
	p.traces = nil
	p.deferred = nil
	p.bfsMode = false
	p.iterations = 0
	p.pendingErr = nil
}

// Close releases any memory-mapped swap files the Processor's arenas hold.
// Heap-backed Processors need not call it. Once closed, a Processor must
// not be used again.
func (p *Processor[I]) Close() error {
	var errState, errCtx error
	if p.statePool != nil {
		errState = p.statePool.Close()
	}
	if p.ctxPool != nil {
		errCtx = p.ctxPool.Close()
	}
	return errors.Join(errState, errCtx)
}

// Traced returns every completed trace recorded since the last Init/Reset.
func (p *Processor[I]) Traced() []Trace[I] {
	out := make([]Trace[I], len(p.traces))
	for i, sp := range p.traces {
		out[i] = Trace[I]{p, sp}
	}
	return out
}

// PoolUsage, PoolPeak and PoolEvicted report combined state+context arena
// statistics, for diagnostics and for populating reporter.Status manually if
// an Observer wants to sample it outside of Run.
func (p *Processor[I]) PoolUsage() int {
	if p.statePool == nil {
		return 0
	}
	return p.statePool.Usage() + p.ctxPool.Usage()
}

func (p *Processor[I]) PoolPeak() int {
	if p.statePool == nil {
		return 0
	}
	return p.statePool.Peak() + p.ctxPool.Peak()
}

func (p *Processor[I]) PoolEvicted() int64 {
	if p.statePool == nil {
		return 0
	}
	return p.statePool.Evicted() + p.ctxPool.Evicted()
}

// Run drains the queue, reorganizing the deferred (entangled) set between
// passes, until both are empty (spec.md §4.6, §4.8). It returns the total
// number of inner-loop iterations (States pulled from the queue) performed
// since the Processor was created or last Reset.
func (p *Processor[I]) Run() (int, error) {
	for {
		if err := p.runInner(); err != nil {
			return p.iterations, err
		}
		if len(p.deferred) == 0 {
			return p.iterations, nil
		}
		p.reorganizeDeferred()
	}
}

func (p *Processor[I]) runInner() error {
	for p.queue.Len() > 0 {
		p.observer().Status(reporter.Status{
			Generation:  p.generation,
			Iteration:   p.iterations,
			QueueLen:    p.queue.Len(),
			TraceCount:  len(p.traces),
			DeferredLen: len(p.deferred),
			PoolUsage:   p.PoolUsage(),
			PoolPeak:    p.PoolPeak(),
			PoolEvicted: p.PoolEvicted(),
		})
		p.iterations++

		var sp pool.Pointer[State[I]]
		var ok bool
		if p.bfsMode {
			sp, ok = p.queue.PopFront()
		} else {
			sp, ok = p.queue.PopBack()
		}
		if !ok {
			break
		}
		p.notify(reporter.Pull, sp)

		if err := p.processState(sp); err != nil {
			return err
		}
	}
	return nil
}

// processState runs one State's entry actions, handles landing on a final
// node (possibly repeatedly, across split continuations), enumerates its
// outgoing arcs, and rolls it back (spec.md §4.5, §4.8).
func (p *Processor[I]) processState(sp pool.Pointer[State[I]]) error {
	if err := p.enterActions(sp); err != nil {
		if errors.Is(err, graph.ErrDeny) {
			p.notify(reporter.Deny, sp)
			p.rollback(sp)
			return nil
		}
		return err
	}
	p.notify(reporter.Entry, sp)

	s := p.statePool.At(sp)
	for s.arc.Target.Final() {
		next, stop, err := p.handleFinal(sp)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
		sp = next
		s = p.statePool.At(sp)
	}

	for s.nextArc < len(s.arc.Target.Arcs) {
		arc := s.arc.Target.Arcs[s.nextArc]
		s.nextArc++

		arc.Acceptor.Accept(p.input, s.rng, spectrum[I]{p, sp, arc})
		if p.pendingErr != nil {
			err := p.pendingErr
			p.pendingErr = nil
			return err
		}

		if arc.Type == graph.Negative {
			p.bfsMode = true
			p.spawnContinuation(sp, s)
			break
		}
		if arc.Type != graph.Simple {
			break
		}
	}

	p.rollback(sp)
	return nil
}

func (p *Processor[I]) enterActions(sp pool.Pointer[State[I]]) error {
	s := p.statePool.At(sp)
	if s.arc == nil {
		return nil
	}
	fw := frameView[I]{p, sp}
	for _, act := range s.arc.Actions {
		if err := act.Enter(fw); err != nil {
			return err
		}
	}
	for _, act := range s.arc.Target.Actions {
		if err := act.Enter(fw); err != nil {
			return err
		}
	}
	return nil
}

// handleFinal implements spec.md §4.5's final-node handling. It returns
// (0, true, nil) when processing of sp is fully done for this iteration
// (a trace was recorded, or a Negative blocked its caller); otherwise it
// returns (next, false, nil), the newly-built split state whose outgoing
// arcs continuation should resume from.
func (p *Processor[I]) handleFinal(sp pool.Pointer[State[I]]) (pool.Pointer[State[I]], bool, error) {
	s := p.statePool.At(sp)
	if s.callee.Nil() {
		p.traces = append(p.traces, sp)
		p.notify(reporter.Trace, sp)
		return 0, true, nil
	}

	c := p.statePool.At(s.callee)
	if c.ancestor.Nil() {
		return 0, true, logicViolationf("callee state has no caller")
	}
	k := c.ancestor
	kState := p.statePool.At(k)

	var nd State[I]
	switch c.arc.Type {
	case graph.Invoke:
		nd = State[I]{
			kind: SplitShifted, arc: kState.arc, nextArc: kState.nextArc,
			rng:      graph.Range{Begin: s.rng.End, End: s.rng.End},
			ancestor: sp, callee: kState.callee,
		}
	case graph.Extend:
		nd = State[I]{
			kind: SplitExtended, arc: kState.arc, nextArc: kState.nextArc,
			rng:      graph.Range{Begin: kState.rng.Begin, End: s.rng.End},
			ancestor: sp, callee: kState.callee,
		}
	case graph.Positive:
		nd = State[I]{
			kind: Split, arc: kState.arc, nextArc: kState.nextArc,
			rng:      kState.rng,
			ancestor: kState.ancestor, callee: kState.callee,
		}
	case graph.Negative:
		kState.blocked = true
		p.notify(reporter.Block, k)
		p.filterBlocked(k)
		p.rollback(sp)
		return 0, true, nil
	default:
		return 0, true, logicViolationf("Simple arc produced a callee (%v)", c.arc.Type)
	}

	dp, err := p.statePool.Allocate(nd)
	if err != nil {
		return 0, true, fmt.Errorf("tracenet: building split: %w", err)
	}
	p.notify(reporter.Split, dp)
	return dp, false, nil
}

// spawn creates one descendant of from via arc, covering the input range
// rng, and either enqueues it or — if arc is entangled — defers it for the
// next reorganization pass (spec.md §3's Spectrum.push, §4.6).
func (p *Processor[I]) spawn(fromPtr pool.Pointer[State[I]], arc *graph.Arc[I], rng graph.Range) {
	if p.pendingErr != nil {
		return
	}
	from := p.statePool.At(fromPtr)

	d := State[I]{kind: Common, arc: arc, rng: rng, ancestor: fromPtr}
	if arc.Type == graph.Simple {
		d.callee = from.callee
	}

	dp, err := p.statePool.Allocate(d)
	if err != nil {
		p.pendingErr = fmt.Errorf("tracenet: spawning descendant: %w", err)
		return
	}
	if arc.Type != graph.Simple {
		p.statePool.At(dp).callee = dp
	}
	p.notify(reporter.Push, dp)

	if arc.Entanglement != 0 {
		p.deferred = append(p.deferred, dp)
		p.notify(reporter.Defer, dp)
		return
	}
	p.queue.PushBack(dp)
}

// spawnContinuation gives k's own outgoing-arc enumeration an optimistic
// sibling the moment a Negative arc is traversed, instead of waiting for the
// callee sub-trace to return: the negated sub-network either matches (and
// filterBlocked removes this continuation along with k) or never reaches a
// final node at all, in which case this continuation is exactly what lets k
// proceed past the assertion (spec.md §3's Negative, §4.5).
func (p *Processor[I]) spawnContinuation(kPtr pool.Pointer[State[I]], k *State[I]) {
	nd := State[I]{kind: Common, arc: k.arc, nextArc: k.nextArc, rng: k.rng, ancestor: kPtr, callee: k.callee}
	dp, err := p.statePool.Allocate(nd)
	if err != nil {
		p.pendingErr = fmt.Errorf("tracenet: spawning negative continuation: %w", err)
		return
	}
	p.notify(reporter.Push, dp)
	p.queue.PushBack(dp)
}

// rollback evicts sp and walks up its ancestor chain evicting as long as
// each eviction succeeds — i.e. as long as the chain is still the arena's
// tail (spec.md §4.4). Any owned Context is evicted alongside its State,
// under the same discipline, from its own arena.
func (p *Processor[I]) rollback(sp pool.Pointer[State[I]]) {
	cur := sp
	for {
		s := p.statePool.At(cur)
		var ctxPtr pool.Pointer[Context]
		if s.ctxMode == ctxOwned {
			ctxPtr = s.ctx
		}
		ancestor := s.ancestor

		if !p.statePool.Evict(cur) {
			return
		}
		p.notify(reporter.Evict, cur)
		if !ctxPtr.Nil() {
			p.ctxPool.Evict(ctxPtr)
		}
		if ancestor.Nil() {
			return
		}
		cur = ancestor
	}
}

// filterBlocked marks every state in the queue, trace list and deferred set
// that is k or a descendant of k as BLOCKED, and removes it from its
// container (spec.md §4.7). Ancestor pointers always address lower slots
// than their descendants, so the walk from any candidate toward k either
// reaches k exactly or passes below it without ever equaling it.
func (p *Processor[I]) filterBlocked(k pool.Pointer[State[I]]) {
	p.queue.items = p.filterContainer(p.queue.items, k)
	p.traces = p.filterContainer(p.traces, k)
	p.deferred = p.filterContainer(p.deferred, k)
}

func (p *Processor[I]) filterContainer(items []pool.Pointer[State[I]], k pool.Pointer[State[I]]) []pool.Pointer[State[I]] {
	out := items[:0]
	for _, sp := range items {
		if p.crossesOrIs(sp, k) {
			p.statePool.At(sp).blocked = true
			p.notify(reporter.Block, sp)
			continue
		}
		out = append(out, sp)
	}
	return out
}

func (p *Processor[I]) crossesOrIs(sp, k pool.Pointer[State[I]]) bool {
	cur := sp
	for int32(cur) > int32(k) {
		s := p.statePool.At(cur)
		if s.ancestor.Nil() {
			return false
		}
		cur = s.ancestor
	}
	return cur == k
}

// reorganizeDeferred resolves one entanglement origin group per call, in
// the manner of spec.md §4.6: sort the deferred set by (origin address,
// priority descending), take the lowest-address origin's top-priority
// candidates (ties included), requeue them, discard the rest of that
// origin's candidates, and leave every other origin's candidates deferred
// for a later pass — this is what makes exploration round-robin across
// concurrently-deferred entanglement groups.
func (p *Processor[I]) reorganizeDeferred() {
	if len(p.deferred) == 0 {
		return
	}

	type candidate struct {
		state    pool.Pointer[State[I]]
		origin   pool.Pointer[State[I]]
		priority int32
	}
	cands := make([]candidate, len(p.deferred))
	for i, dp := range p.deferred {
		arc := p.statePool.At(dp).arc
		cands[i] = candidate{
			state:    dp,
			origin:   p.originOf(dp, arc.Entanglement),
			priority: arc.Priority,
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].origin != cands[j].origin {
			return cands[i].origin < cands[j].origin
		}
		return cands[i].priority > cands[j].priority
	})

	winner := cands[0].origin
	topPriority := cands[0].priority
	var rest []pool.Pointer[State[I]]
	for _, c := range cands {
		switch {
		case c.origin != winner:
			rest = append(rest, c.state)
		case c.priority == topPriority:
			p.queue.PushBack(c.state)
			p.notify(reporter.Push, c.state)
		default:
			p.rollback(c.state)
		}
	}
	p.deferred = rest
}

// originOf finds the state at which the entanglement group identified by
// eid began, by walking d's ancestor chain and counting nesting: entering a
// target node that shares eid increments the counter, leaving via an arc
// that shares eid decrements it (spec.md §4.6). If the walk never balances
// back to zero by the root, the root is used as a conservative origin.
func (p *Processor[I]) originOf(d pool.Pointer[State[I]], eid int32) pool.Pointer[State[I]] {
	count := 0
	cur := d
	for {
		s := p.statePool.At(cur)
		if s.arc != nil && s.arc.Entanglement == eid {
			count--
		}
		if s.arc != nil && s.arc.Target != nil && s.arc.Target.Entanglement == eid {
			count++
		}
		if count == 0 {
			return cur
		}
		if s.ancestor.Nil() {
			return cur
		}
		cur = s.ancestor
	}
}

// frameView adapts a (Processor, State pointer) pair to graph.Frame.
type frameView[I any] struct {
	p  *Processor[I]
	sp pool.Pointer[State[I]]
}

func (f frameView[I]) Range() graph.Range { return f.p.statePool.At(f.sp).rng }

func (f frameView[I]) Val(key string) value.Variable { return f.p.valAt(f.sp, key) }

func (f frameView[I]) Ref(key string) *value.Variable { return f.p.ref(f.sp, key, false) }

func (f frameView[I]) Reset(key string) *value.Variable { return f.p.ref(f.sp, key, true) }

func (f frameView[I]) IsDefined(key string, pred func(value.Variable) bool) bool {
	eff := f.p.effectiveContext(f.sp)
	if eff.Nil() {
		return pred(value.Nil())
	}
	return ctxHandle{f.p.ctxPool, eff}.IsDefined(key, pred)
}

func (f frameView[I]) Push(key string) error { return f.p.push(f.sp, key) }

func (f frameView[I]) Pop(key string) error { return f.p.pop(f.sp, key) }

// valAt reads key visible from sp, without creating it (spec.md §4.9).
func (p *Processor[I]) valAt(sp pool.Pointer[State[I]], key string) value.Variable {
	eff := p.effectiveContext(sp)
	if eff.Nil() {
		return value.Nil()
	}
	return ctxHandle{p.ctxPool, eff}.Val(key)
}

// effectiveContext resolves sp's context pointer, path-compressing every
// intermediate State with ctxMode == ctxNone along the way to borrow the
// context it finds — so repeated lookups are O(1) amortized (spec.md §4.9).
func (p *Processor[I]) effectiveContext(sp pool.Pointer[State[I]]) pool.Pointer[Context] {
	s := p.statePool.At(sp)
	switch s.ctxMode {
	case ctxOwned, ctxBorrowed:
		return s.ctx
	}
	if s.ancestor.Nil() {
		return 0
	}
	eff := p.effectiveContext(s.ancestor)
	s.ctxMode = ctxBorrowed
	s.ctx = eff
	return eff
}

// ref implements Frame.Ref/Frame.Reset: it ensures sp owns a Context (the
// first call on a given State allocates one, parented at the nearest
// ancestor's effective context), then refs key within it.
func (p *Processor[I]) ref(sp pool.Pointer[State[I]], key string, reset bool) *value.Variable {
	s := p.statePool.At(sp)
	if s.ctxMode != ctxOwned {
		var parentEff pool.Pointer[Context]
		if !s.ancestor.Nil() {
			parentEff = p.effectiveContext(s.ancestor)
		}
		cp, err := p.ctxPool.Allocate(Context{parent: parentEff})
		if err != nil {
			p.pendingErr = fmt.Errorf("tracenet: allocating context: %w", err)
			v := value.Nil()
			return &v
		}
		s.ctxMode = ctxOwned
		s.ctx = cp
	}
	h := ctxHandle{p.ctxPool, s.ctx}
	if reset {
		return h.Reset(key)
	}
	return h.Ref(key)
}

func (p *Processor[I]) push(sp pool.Pointer[State[I]], key string) error {
	p.ref(sp, key, false) // ensure ownership without disturbing an existing value
	s := p.statePool.At(sp)
	return ctxHandle{p.ctxPool, s.ctx}.Push(key)
}

func (p *Processor[I]) pop(sp pool.Pointer[State[I]], key string) error {
	p.ref(sp, key, false)
	s := p.statePool.At(sp)
	return ctxHandle{p.ctxPool, s.ctx}.Pop(key)
}
