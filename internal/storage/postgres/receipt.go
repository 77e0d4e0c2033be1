package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/scankart/internal/domain/receipt"
)

const (
	insertReceiptSQL = `INSERT INTO receipts (id, items, total, issued_at)
		VALUES ($1, $2, $3, $4)`

	getReceiptSQL = `SELECT id::text, items, total, issued_at FROM receipts WHERE id = $1`

	listReceiptsSQL = `SELECT id::text, items, total, issued_at FROM receipts
		ORDER BY issued_at DESC LIMIT $1`
)

var _ receipt.Journal = (*ReceiptRepository)(nil)

// ReceiptRepository implements receipt.Journal backed by PostgreSQL. Line
// items are stored as a JSONB array.
type ReceiptRepository struct {
	pool *pgxpool.Pool
}

// NewReceiptRepository returns a ReceiptRepository that uses the given pool.
func NewReceiptRepository(pool *pgxpool.Pool) *ReceiptRepository {
	return &ReceiptRepository{pool: pool}
}

// Save records r.
func (r *ReceiptRepository) Save(ctx context.Context, rc receipt.Receipt) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	receipt.EncodeItems(e, rc.Items)

	_, err := r.pool.Exec(ctx, insertReceiptSQL,
		rc.ID, e.Bytes(), decimal.NewFromInt(rc.Total), rc.Timestamp,
	)
	if err != nil {
		return errors.Wrapf(err, "insert receipt %q", rc.ID)
	}
	return nil
}

// Get returns the receipt with id or receipt.ErrNotFound.
func (r *ReceiptRepository) Get(ctx context.Context, id string) (*receipt.Receipt, error) {
	rows, err := r.pool.Query(ctx, getReceiptSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "query receipt %q", id)
	}

	rc, err := pgx.CollectExactlyOneRow(rows, scanReceipt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, receipt.ErrNotFound
		}
		return nil, errors.Wrapf(err, "scan receipt %q", id)
	}
	return &rc, nil
}

// List returns up to limit receipts, newest first. A non-positive limit
// returns every receipt.
func (r *ReceiptRepository) List(ctx context.Context, limit int) ([]receipt.Receipt, error) {
	rows, err := r.pool.Query(ctx, listReceiptsSQL, limitArg(limit))
	if err != nil {
		return nil, errors.Wrap(err, "query receipts")
	}
	list, err := pgx.CollectRows(rows, scanReceipt)
	if err != nil {
		return nil, errors.Wrap(err, "scan receipts")
	}
	return list, nil
}

// limitArg binds LIMIT $1. NULL means no limit in PostgreSQL.
func limitArg(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}

func scanReceipt(row pgx.CollectableRow) (receipt.Receipt, error) {
	var (
		rc       receipt.Receipt
		items    []byte
		total    decimal.Decimal
		issuedAt time.Time
	)
	if err := row.Scan(&rc.ID, &items, &total, &issuedAt); err != nil {
		return receipt.Receipt{}, err
	}

	decoded, err := receipt.DecodeItems(jx.DecodeBytes(items))
	if err != nil {
		return receipt.Receipt{}, errors.Wrap(err, "decode items")
	}
	rc.Items = decoded
	rc.Total = total.IntPart()
	rc.Timestamp = issuedAt
	return rc, nil
}
