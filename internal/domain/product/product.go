package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no product carries the requested barcode.
var ErrNotFound = errors.New("product not found")

// Product is a sellable catalog entry identified by its barcode.
// UnitPrice is expressed in the smallest unit of the register currency.
type Product struct {
	Barcode   string
	Name      string
	UnitPrice int64
}

// Catalog resolves barcodes to products. Implementations are read-only for
// the lifetime of the process.
type Catalog interface {
	Lookup(barcode string) (Product, error)
}

// Repository defines the persistent source the catalog is loaded from.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	Upsert(ctx context.Context, p Product) error
}

// ErrInvalidPrice is returned when a stored price cannot be represented as a
// non-negative whole number of currency units.
var ErrInvalidPrice = errors.New("invalid price")

// PriceFromDecimal converts a decimal price from storage or a feed into
// integer currency units. Fractional and negative values are rejected.
func PriceFromDecimal(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, errors.Wrapf(ErrInvalidPrice, "negative price %s", d)
	}
	if !d.IsInteger() {
		return 0, errors.Wrapf(ErrInvalidPrice, "fractional price %s", d)
	}
	return d.IntPart(), nil
}
