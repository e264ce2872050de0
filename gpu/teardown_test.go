// Copyright (c) 2025 Cubyte.online under the AGPL License

package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeardownReverseOrder(t *testing.T) {
	var order []int
	var td Teardown
	for i := 0; i < 3; i++ {
		i := i
		td.Add(DestroyFunc(func() { order = append(order, i) }))
	}
	td.Add(nil)
	assert.Equal(t, 3, td.Len())

	td.Destroy()
	assert.Equal(t, []int{2, 1, 0}, order)
	assert.Zero(t, td.Len())

	td.Destroy()
	assert.Equal(t, []int{2, 1, 0}, order, "second Destroy must be a no-op")
}

func TestTeardownMerge(t *testing.T) {
	var order []string
	var outer, inner Teardown
	outer.Add(DestroyFunc(func() { order = append(order, "device") }))
	inner.Add(DestroyFunc(func() { order = append(order, "buffer") }))
	inner.Add(DestroyFunc(func() { order = append(order, "view") }))

	outer.Merge(&inner)
	assert.Zero(t, inner.Len())
	assert.Equal(t, 3, outer.Len())

	outer.Destroy()
	assert.Equal(t, []string{"view", "buffer", "device"}, order)
}
