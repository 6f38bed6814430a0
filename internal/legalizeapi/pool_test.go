package legalizeapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	p := NewPool[int]()
	require.Equal(t, 0, p.Allocated())

	ptrs := make([]*int, 0, poolPageSize*2+3)
	for i := 0; i < poolPageSize*2+3; i++ {
		v := p.Allocate()
		*v = i
		ptrs = append(ptrs, v)
	}
	require.Equal(t, poolPageSize*2+3, p.Allocated())
	for i, ptr := range ptrs {
		require.Equal(t, ptr, p.View(i))
		require.Equal(t, i, *p.View(i))
	}

	p.Reset()
	require.Equal(t, 0, p.Allocated())
	v := p.Allocate()
	require.Equal(t, 0, *v)
	require.Panics(t, func() { p.View(1) })
}
