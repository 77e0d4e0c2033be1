package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/scankart/internal/domain/product"
)

const (
	listProductsSQL = `SELECT barcode, name, price FROM products ORDER BY barcode`

	upsertProductSQL = `INSERT INTO products (barcode, name, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (barcode) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price, updated_at = now()`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products ordered by barcode.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "query products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	return products, nil
}

// Upsert inserts p or updates the name and price of an existing barcode.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.Barcode, p.Name, decimal.NewFromInt(p.UnitPrice),
	)
	if err != nil {
		return errors.Wrapf(err, "upsert product %q", p.Barcode)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	if err := row.Scan(&p.Barcode, &p.Name, &price); err != nil {
		return product.Product{}, err
	}
	unit, err := product.PriceFromDecimal(price)
	if err != nil {
		return product.Product{}, errors.Wrapf(err, "product %q", p.Barcode)
	}
	p.UnitPrice = unit
	return p, nil
}
