// Package tracenet implements a nondeterministic network-traversal engine:
// given an externally-built graph of Nodes and Arcs (the "network",
// constructed by a collaborator outside this module) and an input, a
// Processor explores every accepted path through the network and records
// each one as a Trace.
//
// The various pieces of the model follow spec.md's layering:
//  1. graph holds the static network model a collaborator builds once:
//     Node, Arc, Label, the Acceptor/Spectrum seam an Arc uses to report
//     which input prefixes it accepts, and the Action seam attached
//     semantic actions run through.
//  2. value holds the dynamic Variable type that flows through trace
//     variables and Arrays.
//  3. This package, tracenet, ties them together: State is one node of the
//     (much larger) nondeterministic traversal graph a Processor builds
//     while running, Context is the trace-variable scope chain, and
//     Processor is the engine — construct, Init, Run, read back Traced.
//  4. internal/pool and internal/intern are the low-level arenas and string
//     table States, Contexts and Labels are allocated from.
//  5. reporter is the Observer event sink a Processor notifies as it runs.
//
// # Processor
//
// A Processor accepts one network entry point and one input at a time. A
// minimal run looks like:
//
//	p := tracenet.New[string](entryNode)
//	if err := p.Init(input, 0, len(input)); err != nil {
//	    return err
//	}
//	if _, err := p.Run(); err != nil {
//	    return err
//	}
//	for _, tr := range p.Traced() {
//	    // walk tr.Ancestor() back to the entry, reading tr.Val(key) along
//	    // the way.
//	}
//
// Reset prepares a Processor for a new Init call, reclaiming its pools; the
// network itself is read-only and safe to share across many concurrently
// running Processors.
package tracenet
