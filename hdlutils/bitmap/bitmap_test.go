package bitmap_test

import (
	"testing"

	"github.com/camreq/hdltable/hdlutils"
	"github.com/camreq/hdltable/hdlutils/bitmap"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestBitmapLowestFirst(t *testing.T) {
	b := bitmap.New(10)
	require.Equal(t, 10, b.Capacity())

	for i := 0; i < 4; i++ {
		index, err := b.FindAndSetFree()
		require.NoError(t, err)
		require.Equal(t, i, index)
	}

	require.NoError(t, b.Clear(1))
	index, err := b.FindAndSetFree()
	require.NoError(t, err)
	require.Equal(t, 1, index)

	index, err = b.FindAndSetFree()
	require.NoError(t, err)
	require.Equal(t, 4, index)
	require.Equal(t, 5, b.Count())
}

func TestBitmapFull(t *testing.T) {
	// 70 crosses a word boundary in the underlying bitset
	b := bitmap.New(70)

	seen := make(map[int]bool)
	for i := 0; i < 70; i++ {
		index, err := b.FindAndSetFree()
		require.NoError(t, err)
		require.False(t, seen[index])
		seen[index] = true
	}

	_, err := b.FindAndSetFree()
	require.Error(t, err)
	require.True(t, errors.Is(err, hdlutils.ErrTableFull))

	require.NoError(t, b.Clear(65))
	index, err := b.FindAndSetFree()
	require.NoError(t, err)
	require.Equal(t, 65, index)
}

func TestBitmapDoubleClear(t *testing.T) {
	b := bitmap.New(8)

	index, err := b.FindAndSetFree()
	require.NoError(t, err)
	require.True(t, b.IsSet(index))

	require.NoError(t, b.Clear(index))
	require.False(t, b.IsSet(index))

	err = b.Clear(index)
	require.True(t, errors.Is(err, bitmap.ErrBitNotSet))
	require.Equal(t, 0, b.Count())

	err = b.Clear(8)
	require.True(t, errors.Is(err, bitmap.ErrIndexOutOfRange))
	err = b.Clear(-1)
	require.True(t, errors.Is(err, bitmap.ErrIndexOutOfRange))
	require.False(t, b.IsSet(100))
}

func TestBitmapVisitSetAndReset(t *testing.T) {
	b := bitmap.New(130)
	for i := 0; i < 130; i++ {
		_, err := b.FindAndSetFree()
		require.NoError(t, err)
	}
	for i := 0; i < 130; i++ {
		if i%3 != 0 {
			require.NoError(t, b.Clear(i))
		}
	}

	var visited []int
	b.VisitSet(func(index int) bool {
		visited = append(visited, index)
		return true
	})
	require.Len(t, visited, 44)
	require.Equal(t, 0, visited[0])
	require.Equal(t, 129, visited[len(visited)-1])

	visited = visited[:0]
	b.VisitSet(func(index int) bool {
		visited = append(visited, index)
		return len(visited) < 2
	})
	require.Equal(t, []int{0, 3}, visited)

	b.Reset()
	require.Equal(t, 0, b.Count())
	index, err := b.FindAndSetFree()
	require.NoError(t, err)
	require.Equal(t, 0, index)
}

func TestBitmapZeroCapacity(t *testing.T) {
	b := bitmap.New(0)
	_, err := b.FindAndSetFree()
	require.True(t, errors.Is(err, hdlutils.ErrTableFull))
}
