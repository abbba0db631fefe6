package graph

// Spectrum is the output channel an Acceptor pushes descendant ranges into.
// In the engine, the Processor itself implements Spectrum for the duration
// of one Arc's Accept call; implementations must not retain a Spectrum
// beyond that call (spec.md §6).
type Spectrum interface {
	// Push records a candidate descendant range [from, to) reached by the
	// acceptor that was given this Spectrum. from must be >= the "last"
	// range's End and to must be <= the whole input's End.
	Push(from, to int)
}

// Acceptor is a stateless predicate consuming a prefix of the input
// (spec.md §3, §6). I is the type of the whole input sequence (e.g.
// string, []byte, a token slice); Accept is given the whole input purely so
// acceptors that need lookahead/lookbehind beyond `last` can see it.
//
// Acceptors are owned externally; the engine only ever holds a borrowed
// reference via an Arc.
type Acceptor[I any] interface {
	Accept(whole I, last Range, out Spectrum)
}

// AcceptorFunc adapts a plain function to an Acceptor.
type AcceptorFunc[I any] func(whole I, last Range, out Spectrum)

// Accept implements Acceptor.
func (f AcceptorFunc[I]) Accept(whole I, last Range, out Spectrum) { f(whole, last, out) }
