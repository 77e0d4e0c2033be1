package receipt

import (
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/scankart/internal/domain/cart"
)

func TestEncodeDecode(t *testing.T) {
	r := Receipt{
		ID: "0f8fad5b-d9cb-469f-a165-70867728950e",
		Items: []cart.LineItem{
			{Barcode: "A", Name: "ເຂົ້າຈີ່", UnitPrice: 100, Quantity: 2},
			{Barcode: "B", Name: "Bread \"sliced\"", UnitPrice: 50, Quantity: 1},
		},
		Total:     250,
		Timestamp: time.Date(2026, time.October, 16, 8, 30, 15, 500, time.UTC),
	}

	var e jx.Encoder
	r.Encode(&e)

	raw := e.String()
	assert.Contains(t, raw, `"subtotal":200`)
	assert.Contains(t, raw, `"units":3`)

	var got Receipt
	require.NoError(t, got.Decode(jx.DecodeStr(raw)))
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, r.Items, got.Items)
	assert.Equal(t, r.Total, got.Total)
	assert.True(t, r.Timestamp.Equal(got.Timestamp))
}

func TestDecodeRejectsBadTimestamp(t *testing.T) {
	var r Receipt
	err := r.Decode(jx.DecodeStr(`{"id":"x","timestamp":"yesterday"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timestamp")
}

func TestDecodeItemsEmpty(t *testing.T) {
	items, err := DecodeItems(jx.DecodeStr(`[]`))
	require.NoError(t, err)
	assert.Empty(t, items)
}
