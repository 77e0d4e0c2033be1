package receipt

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/scankart/internal/domain/cart"
	"github.com/xenking/scankart/internal/domain/product"
)

type mockCatalog map[string]product.Product

func (m mockCatalog) Lookup(barcode string) (product.Product, error) {
	p, ok := m[barcode]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	return p, nil
}

func newTestCart(t *testing.T, scans ...string) *cart.Cart {
	t.Helper()
	c := cart.New(mockCatalog{
		"A": {Barcode: "A", Name: "Alpha", UnitPrice: 100},
		"B": {Barcode: "B", Name: "Bravo", UnitPrice: 50},
	})
	for _, b := range scans {
		_, err := c.Add(b)
		require.NoError(t, err)
	}
	return c
}

func TestBuild(t *testing.T) {
	now := time.Date(2026, 10, 16, 14, 5, 0, 0, time.UTC)
	c := newTestCart(t, "A", "A", "B")

	r := Build(c.Items(), now)

	assert.Equal(t, int64(250), r.Total)
	assert.Equal(t, now, r.Timestamp)
	assert.Equal(t, 3, r.Units())
	require.Len(t, r.Items, 2)
	assert.Equal(t, "A", r.Items[0].Barcode)
	assert.Equal(t, 2, r.Items[0].Quantity)
	_, err := uuid.Parse(r.ID)
	assert.NoError(t, err)
}

func TestBuild_TotalMatchesCart(t *testing.T) {
	tests := []struct {
		name  string
		scans []string
	}{
		{name: "empty"},
		{name: "single", scans: []string{"B"}},
		{name: "mixed", scans: []string{"A", "B", "A", "B", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCart(t, tt.scans...)
			r := Build(c.Items(), time.Now())
			assert.Equal(t, c.Total(), r.Total)
			assert.Len(t, r.Items, c.Len())
		})
	}
}

func TestBuild_DoesNotAliasCart(t *testing.T) {
	c := newTestCart(t, "A", "B")
	items := c.Items()
	r := Build(items, time.Now())

	items[0].Quantity = 10
	require.NoError(t, c.SetQuantity("A", 5))
	c.Clear()

	assert.Equal(t, 1, r.Items[0].Quantity)
	assert.Equal(t, int64(150), r.Total)
}

func TestBuild_UniqueIDs(t *testing.T) {
	c := newTestCart(t, "A")
	a := Build(c.Items(), time.Now())
	b := Build(c.Items(), time.Now())
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNopJournal(t *testing.T) {
	ctx := context.Background()
	var j Journal = NopJournal{}

	require.NoError(t, j.Save(ctx, Receipt{ID: "x"}))
	_, err := j.Get(ctx, "x")
	require.ErrorIs(t, err, ErrNotFound)
	list, err := j.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
