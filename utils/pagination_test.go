package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	first := NewPagination(1, 10, 25)
	assert.Equal(t, 3, first.TotalPages)
	assert.True(t, first.HasNext)
	assert.False(t, first.HasPrev)

	last := NewPagination(3, 10, 25)
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrev)

	exact := NewPagination(2, 10, 20)
	assert.False(t, exact.HasNext)
	assert.Equal(t, 2, exact.TotalPages)

	empty := NewPagination(1, 10, 0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
}

func TestParsePageAndLimit(t *testing.T) {
	assert.Equal(t, 1, ParsePage(""))
	assert.Equal(t, 1, ParsePage("abc"))
	assert.Equal(t, 1, ParsePage("-4"))
	assert.Equal(t, 3, ParsePage("3"))
	assert.Equal(t, MaxPage, ParsePage("922337203685477580"))
	assert.Equal(t, 1, ParsePage("99999999999999999999999"), "out of int range")
	assert.Equal(t, MaxPage, ClampPage(math.MaxInt))
	assert.Equal(t, 1, ClampPage(-3))

	assert.Equal(t, 10, ParseLimit("", 10, 100))
	assert.Equal(t, 10, ParseLimit("0", 10, 100))
	assert.Equal(t, 25, ParseLimit("25", 10, 100))
	assert.Equal(t, 100, ParseLimit("500", 10, 100))

	assert.Equal(t, 20, Offset(3, 10))
}

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t, []string{"go", "web"}, UniqueStrings([]string{"go", "web", "go"}))
}
