package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperengineering/cadence/internal/types"
)

func TestCollection_CopyOnWrite(t *testing.T) {
	c := NewCollection([]types.Goal{{ID: 1, Title: "read"}, {ID: 2, Title: "run"}})

	g, ok := c.Get(1)
	assert.True(t, ok)
	g.Title = "changed"
	still, _ := c.Get(1)
	assert.Equal(t, "read", still.Title, "Get returns a copy")

	next := c.With(g, types.Goal{ID: 3})
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 3, next.Len())
	updated, _ := next.Get(1)
	assert.Equal(t, "changed", updated.Title)
	assert.Equal(t, []int64{1, 2, 3}, next.IDs())

	smaller := next.Without(2)
	assert.Equal(t, []int64{1, 3}, smaller.IDs())
	assert.True(t, next.Has(2))
	assert.False(t, smaller.Has(2))
}

func TestCollection_ZeroValue(t *testing.T) {
	var c Collection
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Has(1))
	next := c.With(types.Goal{ID: 1})
	assert.Equal(t, 1, next.Len())
}

func TestCollection_DuplicateIDKeepsLastRecord(t *testing.T) {
	c := NewCollection([]types.Goal{{ID: 1, Title: "a"}, {ID: 2}, {ID: 1, Title: "b"}})
	assert.Equal(t, []int64{1, 2}, c.IDs())
	g, _ := c.Get(1)
	assert.Equal(t, "b", g.Title)
}

func TestCollection_Sorted(t *testing.T) {
	c := NewCollection([]types.Goal{
		{ID: 5},
		{ID: 2, SortOrder: intPtr(2)},
		{ID: 3},
		{ID: 9, SortOrder: intPtr(1)},
	})

	var ids []int64
	for _, g := range c.Sorted() {
		ids = append(ids, g.ID)
	}
	assert.Equal(t, []int64{9, 2, 3, 5}, ids)
}
