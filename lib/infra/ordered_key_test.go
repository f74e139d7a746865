package infra

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderedLess(t *testing.T) {
	less := LessFunc[int](OrderedLess[int])
	require.True(t, less(1, 2))
	require.False(t, less(2, 1))
	require.False(t, less(2, 2))

	require.True(t, less.Equal(3, 3))
	require.False(t, less.Equal(3, 4))

	require.Equal(t, -1, less.Compare(1, 2))
	require.Equal(t, 0, less.Compare(2, 2))
	require.Equal(t, 1, less.Compare(3, 2))
}

func TestLessFuncReverse(t *testing.T) {
	desc := LessFunc[string](OrderedLess[string]).Reverse()
	require.True(t, desc("b", "a"))
	require.False(t, desc("a", "b"))
	require.True(t, desc.Equal("a", "a"))
	require.Equal(t, 1, desc.Compare("a", "b"))
}

type version struct {
	major, minor int
}

func TestLessFuncCustomKey(t *testing.T) {
	less := LessFunc[version](func(i, j version) bool {
		if i.major != j.major {
			return i.major < j.major
		}
		return i.minor < j.minor
	})
	require.True(t, less(version{1, 2}, version{1, 3}))
	require.True(t, less(version{1, 9}, version{2, 0}))
	require.True(t, less.Equal(version{2, 0}, version{2, 0}))
}
