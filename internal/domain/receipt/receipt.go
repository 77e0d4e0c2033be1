package receipt

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/scankart/internal/domain/cart"
)

// ErrNotFound is returned by a Journal when no receipt has the requested ID.
var ErrNotFound = errors.New("receipt not found")

// Receipt is an immutable snapshot of a cart at the moment it was printed.
type Receipt struct {
	ID        string
	Items     []cart.LineItem
	Total     int64
	Timestamp time.Time
}

// Units returns the number of units sold on the receipt.
func (r Receipt) Units() int {
	n := 0
	for _, li := range r.Items {
		n += li.Quantity
	}
	return n
}

// Build snapshots items into a new Receipt stamped with now. The items are
// copied and the total is recomputed from the copy; the caller's slice is
// never retained.
func Build(items []cart.LineItem, now time.Time) Receipt {
	snapshot := make([]cart.LineItem, len(items))
	copy(snapshot, items)

	return Receipt{
		ID:        uuid.New().String(),
		Items:     snapshot,
		Total:     cart.Total(snapshot),
		Timestamp: now,
	}
}

// Journal records issued receipts so they can be reprinted.
type Journal interface {
	Save(ctx context.Context, r Receipt) error
	// Get returns ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (*Receipt, error)
	// List returns up to limit receipts, newest first. A non-positive limit
	// returns every receipt.
	List(ctx context.Context, limit int) ([]Receipt, error)
}

// NopJournal discards receipts. It is used when no journal is configured.
type NopJournal struct{}

var _ Journal = NopJournal{}

// Save implements Journal.
func (NopJournal) Save(context.Context, Receipt) error { return nil }

// Get implements Journal.
func (NopJournal) Get(context.Context, string) (*Receipt, error) { return nil, ErrNotFound }

// List implements Journal.
func (NopJournal) List(context.Context, int) ([]Receipt, error) { return nil, nil }
