package receipt

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/scankart/internal/domain/cart"
)

// Encode writes r as a JSON object. Journals store this form and the HTTP
// API returns it.
func (r Receipt) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(r.ID)
	e.FieldStart("items")
	EncodeItems(e, r.Items)
	e.FieldStart("total")
	e.Int64(r.Total)
	e.FieldStart("units")
	e.Int(r.Units())
	e.FieldStart("timestamp")
	e.Str(r.Timestamp.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()
}

// Decode reads r from a JSON object written by Encode. Derived fields are
// ignored and the total is read as stored.
func (r *Receipt) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "id")
			}
			r.ID = v
		case "items":
			items, err := DecodeItems(d)
			if err != nil {
				return errors.Wrap(err, "items")
			}
			r.Items = items
		case "total":
			v, err := d.Int64()
			if err != nil {
				return errors.Wrap(err, "total")
			}
			r.Total = v
		case "timestamp":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "timestamp")
			}
			ts, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return errors.Wrap(err, "timestamp")
			}
			r.Timestamp = ts
		default:
			return d.Skip()
		}
		return nil
	})
}

// EncodeItems writes line items as a JSON array.
func EncodeItems(e *jx.Encoder, items []cart.LineItem) {
	e.ArrStart()
	for _, li := range items {
		e.ObjStart()
		e.FieldStart("barcode")
		e.Str(li.Barcode)
		e.FieldStart("name")
		e.Str(li.Name)
		e.FieldStart("unitPrice")
		e.Int64(li.UnitPrice)
		e.FieldStart("quantity")
		e.Int(li.Quantity)
		e.FieldStart("subtotal")
		e.Int64(li.Subtotal())
		e.ObjEnd()
	}
	e.ArrEnd()
}

// DecodeItems reads a JSON array written by EncodeItems.
func DecodeItems(d *jx.Decoder) ([]cart.LineItem, error) {
	items := make([]cart.LineItem, 0)
	err := d.Arr(func(d *jx.Decoder) error {
		var li cart.LineItem
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "barcode":
				li.Barcode, err = d.Str()
			case "name":
				li.Name, err = d.Str()
			case "unitPrice":
				li.UnitPrice, err = d.Int64()
			case "quantity":
				li.Quantity, err = d.Int()
			default:
				err = d.Skip()
			}
			if err != nil {
				return errors.Wrap(err, key)
			}
			return nil
		}); err != nil {
			return err
		}
		items = append(items, li)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
