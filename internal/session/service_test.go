package session

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/scankart/internal/domain/cart"
	"github.com/xenking/scankart/internal/domain/product"
	"github.com/xenking/scankart/internal/domain/receipt"
)

// --- Mock implementations ---

type mockCatalog map[string]product.Product

func (m mockCatalog) Lookup(barcode string) (product.Product, error) {
	p, ok := m[barcode]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	return p, nil
}

type mockJournal struct {
	mu      sync.Mutex
	saved   []receipt.Receipt
	saveErr error
}

func (m *mockJournal) Save(_ context.Context, r receipt.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, r)
	return nil
}

func (m *mockJournal) Get(_ context.Context, id string) (*receipt.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.saved {
		if m.saved[i].ID == id {
			r := m.saved[i]
			return &r, nil
		}
	}
	return nil, receipt.ErrNotFound
}

func (m *mockJournal) List(_ context.Context, limit int) ([]receipt.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.saved) {
		limit = len(m.saved)
	}
	return m.saved[:limit], nil
}

// --- Helpers ---

var fixedNow = time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, journal receipt.Journal) *Service {
	t.Helper()
	catalog := mockCatalog{
		"A": {Barcode: "A", Name: "Apple", UnitPrice: 100},
		"B": {Barcode: "B", Name: "Bread", UnitPrice: 50},
	}
	svc, err := NewService(catalog, NewStore(16, time.Hour), journal, Options{
		Now: func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc
}

// --- Tests ---

func TestScan(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	id := svc.Open(ctx).SessionID

	_, err := svc.Scan(ctx, id, "A")
	require.NoError(t, err)
	_, err = svc.Scan(ctx, id, "A")
	require.NoError(t, err)
	v, err := svc.Scan(ctx, id, "B")
	require.NoError(t, err)

	require.Len(t, v.Items, 2)
	assert.Equal(t, 2, v.Items[0].Quantity)
	assert.Equal(t, int64(250), v.Total)
	assert.Equal(t, 3, v.Units)
}

func TestScanUnknownBarcode(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	id := svc.Open(ctx).SessionID

	_, err := svc.Scan(ctx, id, "A")
	require.NoError(t, err)

	v, err := svc.Scan(ctx, id, "Z")
	require.ErrorIs(t, err, cart.ErrUnknownBarcode)
	require.Len(t, v.Items, 1, "view is returned unchanged")
	assert.Equal(t, int64(100), v.Total)
}

func TestUnknownSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	_, err := svc.Scan(ctx, "missing", "A")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Cart(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.IssueReceipt(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Close(ctx, "missing"), ErrNotFound)
}

func TestSetQuantityAndRemove(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	id := svc.Open(ctx).SessionID

	_, err := svc.Scan(ctx, id, "A")
	require.NoError(t, err)

	v, err := svc.SetQuantity(ctx, id, "A", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(500), v.Total)

	v, err = svc.SetQuantity(ctx, id, "B", 2)
	require.ErrorIs(t, err, cart.ErrItemNotInCart)
	assert.Equal(t, int64(500), v.Total)

	v, err = svc.Remove(ctx, id, "A")
	require.NoError(t, err)
	assert.True(t, v.Empty())

	_, err = svc.Remove(ctx, id, "A")
	require.ErrorIs(t, err, cart.ErrItemNotInCart)
}

func TestAdjust(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	id := svc.Open(ctx).SessionID

	_, err := svc.Scan(ctx, id, "B")
	require.NoError(t, err)

	v, err := svc.Adjust(ctx, id, "B", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Items[0].Quantity)

	v, err = svc.Adjust(ctx, id, "B", -2)
	require.NoError(t, err)
	assert.True(t, v.Empty())

	_, err = svc.Adjust(ctx, id, "B", 1)
	require.ErrorIs(t, err, cart.ErrItemNotInCart)
}

func TestAdjustRejectsOverflow(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	id := svc.Open(ctx).SessionID

	_, err := svc.Scan(ctx, id, "A")
	require.NoError(t, err)
	_, err = svc.Scan(ctx, id, "A")
	require.NoError(t, err)

	v, err := svc.Adjust(ctx, id, "A", math.MaxInt)
	require.ErrorIs(t, err, cart.ErrInvalidQuantity)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 2, v.Items[0].Quantity)

	v, err = svc.SetQuantity(ctx, id, "A", math.MaxInt64/50)
	require.ErrorIs(t, err, cart.ErrInvalidQuantity)
	assert.Equal(t, 2, v.Items[0].Quantity)
	assert.Positive(t, v.Total)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	id := svc.Open(ctx).SessionID

	_, err := svc.Scan(ctx, id, "A")
	require.NoError(t, err)
	v, err := svc.Clear(ctx, id)
	require.NoError(t, err)
	assert.True(t, v.Empty())
	assert.Zero(t, v.Total)
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	first := svc.Open(ctx).SessionID
	second := svc.Open(ctx).SessionID
	require.NotEqual(t, first, second)

	_, err := svc.Scan(ctx, first, "A")
	require.NoError(t, err)

	v, err := svc.Cart(ctx, second)
	require.NoError(t, err)
	assert.True(t, v.Empty())
	assert.Equal(t, 2, svc.Sessions())

	require.NoError(t, svc.Close(ctx, first))
	_, err = svc.Cart(ctx, first)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIssueReceipt(t *testing.T) {
	ctx := context.Background()
	journal := &mockJournal{}
	svc := newTestService(t, journal)
	id := svc.Open(ctx).SessionID

	_, err := svc.IssueReceipt(ctx, id)
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, journal.saved)

	_, err = svc.Scan(ctx, id, "A")
	require.NoError(t, err)
	_, err = svc.Scan(ctx, id, "B")
	require.NoError(t, err)

	r, err := svc.IssueReceipt(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(150), r.Total)
	assert.Equal(t, fixedNow, r.Timestamp)
	require.Len(t, journal.saved, 1)

	v, err := svc.Cart(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, r.Total, v.Total, "cart is kept after printing")

	got, err := svc.Receipt(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = svc.Receipt(ctx, "nope")
	require.ErrorIs(t, err, receipt.ErrNotFound)

	list, err := svc.Receipts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestIssueReceiptJournalError(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &mockJournal{saveErr: errors.New("disk full")})
	id := svc.Open(ctx).SessionID

	_, err := svc.Scan(ctx, id, "A")
	require.NoError(t, err)

	_, err = svc.IssueReceipt(ctx, id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save receipt")
}

func TestConcurrentScans(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	id := svc.Open(ctx).SessionID

	const n = 50
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Scan(ctx, id, "A")
		}()
	}
	wg.Wait()

	v, err := svc.Cart(ctx, id)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, n, v.Items[0].Quantity)
	assert.Equal(t, int64(n*100), v.Total)
}
