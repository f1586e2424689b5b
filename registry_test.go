package compositor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_InsertTakeRoundTrip(t *testing.T) {
	r := newRegistry()
	w := newWaiter()
	r.insert("abc", w)

	got, ok := r.take("abc")
	require.True(t, ok)
	assert.Same(t, w, got)

	_, ok = r.take("abc")
	assert.False(t, ok, "take must remove before returning")
}

func TestRegistry_InsertDuplicateNoncePanics(t *testing.T) {
	r := newRegistry()
	r.insert("abc", newWaiter())
	assert.Panics(t, func() { r.insert("abc", newWaiter()) })
}

func TestRegistry_DrainRemovesEverything(t *testing.T) {
	r := newRegistry()
	r.insert("a", newWaiter())
	r.insert("b", newWaiter())

	drained := r.drain()
	assert.Len(t, drained, 2)
	assert.True(t, r.isEmpty())
}

func TestRegistry_TakeMissingNonceIsNoOp(t *testing.T) {
	r := newRegistry()
	_, ok := r.take("nope")
	assert.False(t, ok)
}
