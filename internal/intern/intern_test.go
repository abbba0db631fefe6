package intern_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tracenet/tracenet/internal/intern"
)

func TestInternRoundTrip(t *testing.T) {
	assert := assert.New(t)
	var table intern.Table

	a := table.Intern("foo.bar")
	b := table.Intern("foo.bar")
	c := table.Intern("foo.baz")

	assert.Equal(a, b)
	assert.NotEqual(a, c)
	assert.Equal("foo.bar", table.Value(a))
	assert.Equal("foo.baz", table.Value(c))
}

func TestInternEmptyIsZero(t *testing.T) {
	assert := assert.New(t)
	var table intern.Table

	assert.Equal(intern.ID(0), table.Intern(""))
	assert.Equal("", table.Value(0))
}
