package journal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRevertRunsNewestFirst(t *testing.T) {
	j := New()
	var order []int
	j.Append(func() { order = append(order, 1) })
	j.Append(func() { order = append(order, 2) })
	require.Equal(t, 2, j.Len())

	j.Revert()
	require.Equal(t, []int{2, 1}, order)
	require.Zero(t, j.Len())
}

func TestDiscardKeepsChanges(t *testing.T) {
	j := New()
	v := 1
	j.Append(func() { v = 0 })
	v = 2
	j.Discard()
	j.Revert()
	require.Equal(t, 2, v)
}

func TestNilJournal(t *testing.T) {
	var j *Journal
	j.Append(func() { t.Fatal("must not run") })
	j.Revert()
	j.Discard()
	require.Zero(t, j.Len())
}
