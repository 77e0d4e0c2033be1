// Package catalog provides the in-memory, read-only product catalog the
// register resolves barcodes against, and loaders that build it from the
// embedded demo data, a JSON feed or the product repository.
package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/xenking/scankart/internal/domain/product"
)

// InvalidProductError reports a catalog entry that cannot be sold.
type InvalidProductError struct {
	Barcode string
	Reason  string
}

func (e *InvalidProductError) Error() string {
	return fmt.Sprintf("invalid product %q: %s", e.Barcode, e.Reason)
}

// DuplicateBarcodeError reports a barcode that appears more than once.
type DuplicateBarcodeError struct {
	Barcode string
}

func (e *DuplicateBarcodeError) Error() string {
	return fmt.Sprintf("duplicate barcode %s", e.Barcode)
}

// Catalog is an immutable barcode index over a product list.
type Catalog struct {
	byBarcode map[string]product.Product
	ordered   []product.Product
}

var _ product.Catalog = (*Catalog)(nil)

// New validates products and indexes them by barcode. The input order is
// kept for Samples.
func New(products []product.Product) (*Catalog, error) {
	c := &Catalog{
		byBarcode: make(map[string]product.Product, len(products)),
		ordered:   make([]product.Product, 0, len(products)),
	}
	for _, p := range products {
		p.Barcode = strings.TrimSpace(p.Barcode)
		p.Name = strings.TrimSpace(p.Name)

		switch {
		case p.Barcode == "":
			return nil, &InvalidProductError{Barcode: p.Barcode, Reason: "empty barcode"}
		case p.Name == "":
			return nil, &InvalidProductError{Barcode: p.Barcode, Reason: "empty name"}
		case p.UnitPrice < 0:
			return nil, &InvalidProductError{Barcode: p.Barcode, Reason: "negative price"}
		}
		if _, dup := c.byBarcode[p.Barcode]; dup {
			return nil, &DuplicateBarcodeError{Barcode: p.Barcode}
		}

		c.byBarcode[p.Barcode] = p
		c.ordered = append(c.ordered, p)
	}
	return c, nil
}

// Lookup returns the product for barcode or product.ErrNotFound.
func (c *Catalog) Lookup(barcode string) (product.Product, error) {
	p, ok := c.byBarcode[barcode]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	return p, nil
}

// List returns all products sorted by barcode.
func (c *Catalog) List() []product.Product {
	out := slices.Clone(c.ordered)
	slices.SortFunc(out, func(a, b product.Product) int {
		return strings.Compare(a.Barcode, b.Barcode)
	})
	return out
}

// Samples returns up to n products in catalog order, for quick-add buttons.
func (c *Catalog) Samples(n int) []product.Product {
	if n <= 0 || n > len(c.ordered) {
		n = len(c.ordered)
	}
	return slices.Clone(c.ordered[:n])
}

// Len returns the number of products.
func (c *Catalog) Len() int { return len(c.ordered) }
