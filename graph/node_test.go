package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tracenet/tracenet/graph"
)

func TestNodeFinal(t *testing.T) {
	assert := assert.New(t)

	final := &graph.Node[string]{}
	assert.True(final.Final())

	nonFinal := &graph.Node[string]{Arcs: []*graph.Arc[string]{{Target: final}}}
	assert.False(nonFinal.Final())
}

func TestArcTypeOpens(t *testing.T) {
	assert := assert.New(t)
	assert.False(graph.Simple.Opens())
	assert.True(graph.Invoke.Opens())
	assert.True(graph.Extend.Opens())
	assert.True(graph.Positive.Opens())
	assert.True(graph.Negative.Opens())
}
