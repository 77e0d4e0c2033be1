package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/scankart/db"
	"github.com/xenking/scankart/internal/domain/product"
)

// productJSON is the feed format shared by the embedded catalog, catalog
// files and the seeding tool.
type productJSON struct {
	Barcode string          `json:"barcode"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
}

// Decode parses a JSON array of products. Prices must be whole,
// non-negative numbers.
func Decode(r io.Reader) ([]product.Product, error) {
	var feed []productJSON
	if err := json.NewDecoder(r).Decode(&feed); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}

	out := make([]product.Product, len(feed))
	for i, p := range feed {
		price, err := product.PriceFromDecimal(p.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "product %s", p.Barcode)
		}
		out[i] = product.Product{
			Barcode:   p.Barcode,
			Name:      p.Name,
			UnitPrice: price,
		}
	}
	return out, nil
}

// ReadFile decodes a product feed from path. Files ending in .gz are
// decompressed on the fly.
func ReadFile(path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog file")
	}
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer zr.Close()
		r = zr
	}

	products, err := Decode(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return products, nil
}

// Default builds the catalog from the embedded demo products.
func Default() (*Catalog, error) {
	products, err := Decode(bytes.NewReader(db.Products))
	if err != nil {
		return nil, errors.Wrap(err, "decode embedded catalog")
	}
	return New(products)
}

// LoadFile builds the catalog from a product feed file.
func LoadFile(path string) (*Catalog, error) {
	products, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(products)
}

// LoadRepository builds the catalog from the persistent product source.
func LoadRepository(ctx context.Context, repo product.Repository) (*Catalog, error) {
	products, err := repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return New(products)
}
