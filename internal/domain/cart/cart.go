// Package cart implements the register ledger: an ordered set of line items
// keyed by barcode, with quantities and a recomputed total.
package cart

import (
	"fmt"
	"math"

	"github.com/go-faster/errors"

	"github.com/xenking/scankart/internal/domain/product"
)

var (
	// ErrUnknownBarcode is returned by Add when the catalog has no product
	// for the barcode. The cart is left unchanged.
	ErrUnknownBarcode = errors.New("unknown barcode")
	// ErrItemNotInCart is returned by SetQuantity and Remove when the cart
	// holds no line for the barcode. Callers treat it as a benign no-op.
	ErrItemNotInCart = errors.New("item not in cart")
	// ErrInvalidQuantity is returned when a quantity exceeds MaxQuantity or
	// would push a subtotal or the total past what an int64 holds. The cart
	// is left unchanged.
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// MaxQuantity is the largest quantity a single line may hold.
const MaxQuantity = 9999

// QuantityError carries the rejected quantity of a line.
type QuantityError struct {
	Barcode  string
	Quantity int
}

func (e *QuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for %s", e.Quantity, e.Barcode)
}

// Is reports ErrInvalidQuantity so callers can match on the sentinel.
func (e *QuantityError) Is(target error) bool {
	return target == ErrInvalidQuantity
}

// UnknownBarcodeError carries the barcode that failed catalog lookup.
type UnknownBarcodeError struct {
	Barcode string
	Err     error
}

func (e *UnknownBarcodeError) Error() string {
	return fmt.Sprintf("unknown barcode %s", e.Barcode)
}

// Is reports ErrUnknownBarcode so callers can match on the sentinel.
func (e *UnknownBarcodeError) Is(target error) bool {
	return target == ErrUnknownBarcode
}

func (e *UnknownBarcodeError) Unwrap() error { return e.Err }

// LineItem is one distinct product in the cart.
type LineItem struct {
	Barcode   string
	Name      string
	UnitPrice int64
	Quantity  int
}

// Subtotal returns UnitPrice * Quantity.
func (li LineItem) Subtotal() int64 {
	return li.UnitPrice * int64(li.Quantity)
}

// Cart is the ledger of a single register session. Items keep their
// first-insertion order; index maps a barcode to its position in items.
//
// A Cart is not safe for concurrent use.
type Cart struct {
	catalog product.Catalog
	items   []LineItem
	index   map[string]int
}

// New returns an empty cart resolving barcodes through catalog.
func New(catalog product.Catalog) *Cart {
	return &Cart{
		catalog: catalog,
		index:   make(map[string]int),
	}
}

// Add scans one unit of the product with the given barcode. An existing line
// is incremented in place; a new line is appended with quantity 1.
func (c *Cart) Add(barcode string) (LineItem, error) {
	p, err := c.catalog.Lookup(barcode)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return LineItem{}, &UnknownBarcodeError{Barcode: barcode, Err: err}
		}
		return LineItem{}, errors.Wrapf(err, "lookup %s", barcode)
	}

	if i, ok := c.index[barcode]; ok {
		if err := c.check(i, c.items[i].Quantity+1); err != nil {
			return c.items[i], err
		}
		c.items[i].Quantity++
		return c.items[i], nil
	}

	li := LineItem{
		Barcode:   p.Barcode,
		Name:      p.Name,
		UnitPrice: p.UnitPrice,
		Quantity:  1,
	}
	if _, ok := sum(append(c.Items(), li)); !ok {
		return LineItem{}, &QuantityError{Barcode: barcode, Quantity: 1}
	}
	c.index[barcode] = len(c.items)
	c.items = append(c.items, li)
	return li, nil
}

// SetQuantity replaces the quantity of an existing line. A quantity of zero
// or less removes the line, exactly as Remove does. Quantities above
// MaxQuantity are rejected with a *QuantityError.
func (c *Cart) SetQuantity(barcode string, quantity int) error {
	if quantity <= 0 {
		return c.Remove(barcode)
	}
	i, ok := c.index[barcode]
	if !ok {
		return ErrItemNotInCart
	}
	if err := c.check(i, quantity); err != nil {
		return err
	}
	c.items[i].Quantity = quantity
	return nil
}

// Adjust changes the quantity of an existing line by delta. A result of zero
// or less removes the line.
func (c *Cart) Adjust(barcode string, delta int) error {
	i, ok := c.index[barcode]
	if !ok {
		return ErrItemNotInCart
	}
	q := c.items[i].Quantity
	switch {
	case delta > MaxQuantity-q:
		return &QuantityError{Barcode: barcode, Quantity: MaxQuantity + 1}
	case delta <= -q:
		return c.Remove(barcode)
	}
	return c.SetQuantity(barcode, q+delta)
}

// check validates quantity for line i against MaxQuantity and int64 range
// of the resulting total.
func (c *Cart) check(i, quantity int) error {
	err := &QuantityError{Barcode: c.items[i].Barcode, Quantity: quantity}
	if quantity > MaxQuantity {
		return err
	}
	next := c.Items()
	next[i].Quantity = quantity
	if _, ok := sum(next); !ok {
		return err
	}
	return nil
}

// sum totals items, reporting false when the result does not fit in int64.
func sum(items []LineItem) (int64, bool) {
	var total int64
	for _, li := range items {
		if li.UnitPrice < 0 || li.Quantity < 0 {
			return 0, false
		}
		if li.Quantity > 0 && li.UnitPrice > math.MaxInt64/int64(li.Quantity) {
			return 0, false
		}
		sub := li.Subtotal()
		if total > math.MaxInt64-sub {
			return 0, false
		}
		total += sub
	}
	return total, true
}

// Remove deletes the line for barcode.
func (c *Cart) Remove(barcode string) error {
	i, ok := c.index[barcode]
	if !ok {
		return ErrItemNotInCart
	}

	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, barcode)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].Barcode] = j
	}
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
	clear(c.index)
}

// Total returns the sum of all line subtotals, recomputed on every call.
func (c *Cart) Total() int64 {
	return Total(c.items)
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Item returns the line for barcode, if present.
func (c *Cart) Item(barcode string) (LineItem, bool) {
	i, ok := c.index[barcode]
	if !ok {
		return LineItem{}, false
	}
	return c.items[i], true
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int { return len(c.items) }

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool { return len(c.items) == 0 }

// Units returns the sum of quantities across all lines.
func (c *Cart) Units() int {
	n := 0
	for _, li := range c.items {
		n += li.Quantity
	}
	return n
}

// Total sums the subtotals of items. It is exported so snapshots taken from
// a cart can be totalled without the cart itself.
func Total(items []LineItem) int64 {
	var sum int64
	for _, li := range items {
		sum += li.Subtotal()
	}
	return sum
}
