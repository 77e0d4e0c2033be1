// Package bolt keeps the receipt journal of a standalone register in a local
// bbolt file.
package bolt

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.etcd.io/bbolt"

	"github.com/xenking/scankart/internal/domain/receipt"
)

var (
	receiptsBucket = []byte("receipts")
	// issuedBucket maps big-endian issue time + receipt ID to the receipt
	// ID, so a reverse cursor walk yields the newest receipts first.
	issuedBucket = []byte("issued")
)

var _ receipt.Journal = (*Journal)(nil)

// Journal implements receipt.Journal on bbolt.
type Journal struct {
	db *bbolt.DB
}

// Open opens or creates the journal file at path.
func Open(path string) (*Journal, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open bolt")
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(receiptsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(issuedBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create buckets")
	}

	return &Journal{db: db}, nil
}

// Close releases the file lock.
func (j *Journal) Close() error {
	return j.db.Close()
}

func issuedKey(r receipt.Receipt) []byte {
	key := make([]byte, 8, 8+len(r.ID))
	binary.BigEndian.PutUint64(key, uint64(r.Timestamp.UnixNano()))
	return append(key, r.ID...)
}

// Save records r. Saving the same ID twice overwrites the stored receipt.
func (j *Journal) Save(ctx context.Context, r receipt.Receipt) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	r.Encode(e)

	if err := j.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(receiptsBucket).Put([]byte(r.ID), e.Bytes()); err != nil {
			return err
		}
		return tx.Bucket(issuedBucket).Put(issuedKey(r), []byte(r.ID))
	}); err != nil {
		return errors.Wrapf(err, "save receipt %q", r.ID)
	}
	return nil
}

// Get returns the receipt with id or receipt.ErrNotFound.
func (j *Journal) Get(ctx context.Context, id string) (*receipt.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var r receipt.Receipt
	err := j.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(receiptsBucket).Get([]byte(id))
		if data == nil {
			return receipt.ErrNotFound
		}
		return r.Decode(jx.DecodeBytes(data))
	})
	if err != nil {
		if errors.Is(err, receipt.ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "get receipt %q", id)
	}
	return &r, nil
}

// List returns up to limit receipts, newest first. A non-positive limit
// returns every receipt.
func (j *Journal) List(ctx context.Context, limit int) ([]receipt.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list := make([]receipt.Receipt, 0)
	err := j.db.View(func(tx *bbolt.Tx) error {
		receipts := tx.Bucket(receiptsBucket)
		c := tx.Bucket(issuedBucket).Cursor()
		for k, id := c.Last(); k != nil; k, id = c.Prev() {
			if limit > 0 && len(list) >= limit {
				break
			}
			data := receipts.Get(id)
			if data == nil {
				continue
			}
			var r receipt.Receipt
			if err := r.Decode(jx.DecodeBytes(data)); err != nil {
				return errors.Wrapf(err, "decode receipt %q", id)
			}
			list = append(list, r)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list receipts")
	}
	return list, nil
}
