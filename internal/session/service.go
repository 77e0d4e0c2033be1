package session

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/scankart/internal/domain/cart"
	"github.com/xenking/scankart/internal/domain/product"
	"github.com/xenking/scankart/internal/domain/receipt"
)

// View is a consistent snapshot of a session's cart taken after an
// operation.
type View struct {
	SessionID string
	Items     []cart.LineItem
	Total     int64
	Units     int
}

// Empty reports whether the cart had no items.
func (v View) Empty() bool { return len(v.Items) == 0 }

func viewOf(sess *Session) View {
	return View{
		SessionID: sess.ID,
		Items:     sess.cart.Items(),
		Total:     sess.cart.Total(),
		Units:     sess.cart.Units(),
	}
}

// Options holds the optional dependencies of a Service. Nil providers
// disable telemetry.
type Options struct {
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
	// Now stamps receipts and sessions. Defaults to time.Now.
	Now func() time.Time
}

// Service runs cart operations on sessions and issues receipts.
type Service struct {
	catalog product.Catalog
	store   *Store
	journal receipt.Journal
	now     func() time.Time

	tracer   trace.Tracer
	scans    metric.Int64Counter
	receipts metric.Int64Counter
}

// NewService creates a Service.
func NewService(
	catalog product.Catalog,
	store *Store,
	journal receipt.Journal,
	opts Options,
) (*Service, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if journal == nil {
		journal = receipt.NopJournal{}
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = metricnoop.NewMeterProvider()
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = tracenoop.NewTracerProvider()
	}
	s := &Service{
		catalog: catalog,
		store:   store,
		journal: journal,
		now:     opts.Now,
	}

	const name = "github.com/xenking/scankart/internal/session"
	s.tracer = opts.TracerProvider.Tracer(name)
	meter := opts.MeterProvider.Meter(name)

	var err error
	if s.scans, err = meter.Int64Counter("scankart.cart.scans",
		metric.WithDescription("Barcodes scanned into carts, by outcome"),
	); err != nil {
		return nil, errors.Wrap(err, "scans counter")
	}
	if s.receipts, err = meter.Int64Counter("scankart.receipts.issued",
		metric.WithDescription("Receipts issued"),
	); err != nil {
		return nil, errors.Wrap(err, "receipts counter")
	}
	return s, nil
}

func (s *Service) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "session."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// do runs fn on the session's cart under the session lock and returns the
// cart as fn left it. The view is filled whenever the session exists, also
// when fn fails.
func (s *Service) do(ctx context.Context, id, op string, fn func(c *cart.Cart) error) (v View, err error) {
	_, span := s.startSpan(ctx, op, attribute.String("session.id", id))
	defer func() { endSpan(span, err) }()

	sess, err := s.store.Get(id)
	if err != nil {
		return View{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	err = fn(sess.cart)
	return viewOf(sess), err
}

// Open starts a new session with an empty cart.
func (s *Service) Open(ctx context.Context) View {
	_, span := s.startSpan(ctx, "Open")
	defer span.End()

	sess := newSession(s.catalog, s.now())
	s.store.Put(sess)
	span.SetAttributes(attribute.String("session.id", sess.ID))

	zctx.From(ctx).Debug("Session opened", zap.String("session_id", sess.ID))
	return View{SessionID: sess.ID}
}

// Close discards the session and its cart.
func (s *Service) Close(ctx context.Context, id string) error {
	if !s.store.Delete(id) {
		return ErrNotFound
	}
	zctx.From(ctx).Debug("Session closed", zap.String("session_id", id))
	return nil
}

// Cart returns the current cart of the session.
func (s *Service) Cart(ctx context.Context, id string) (View, error) {
	return s.do(ctx, id, "Cart", func(*cart.Cart) error { return nil })
}

// Scan adds one unit of the product with barcode. Unknown barcodes leave
// the cart unchanged and return an error matching cart.ErrUnknownBarcode.
func (s *Service) Scan(ctx context.Context, id, barcode string) (View, error) {
	v, err := s.do(ctx, id, "Scan", func(c *cart.Cart) error {
		_, err := c.Add(barcode)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return v, err
	}

	outcome := "added"
	switch {
	case errors.Is(err, cart.ErrUnknownBarcode):
		outcome = "unknown"
	case err != nil:
		outcome = "error"
	}
	s.countScan(ctx, outcome)
	return v, err
}

func (s *Service) countScan(ctx context.Context, outcome string) {
	s.scans.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// SetQuantity sets the quantity of a line; n <= 0 removes it.
func (s *Service) SetQuantity(ctx context.Context, id, barcode string, n int) (View, error) {
	return s.do(ctx, id, "SetQuantity", func(c *cart.Cart) error {
		return c.SetQuantity(barcode, n)
	})
}

// Adjust changes the quantity of a line by delta, removing it when the
// result drops to zero.
func (s *Service) Adjust(ctx context.Context, id, barcode string, delta int) (View, error) {
	return s.do(ctx, id, "Adjust", func(c *cart.Cart) error {
		return c.Adjust(barcode, delta)
	})
}

// Remove deletes a line from the cart.
func (s *Service) Remove(ctx context.Context, id, barcode string) (View, error) {
	return s.do(ctx, id, "Remove", func(c *cart.Cart) error {
		return c.Remove(barcode)
	})
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, id string) (View, error) {
	return s.do(ctx, id, "Clear", func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
}

// IssueReceipt snapshots the cart into a receipt and records it in the
// journal. The cart itself is left as is.
func (s *Service) IssueReceipt(ctx context.Context, id string) (receipt.Receipt, error) {
	var r receipt.Receipt
	if _, err := s.do(ctx, id, "IssueReceipt", func(c *cart.Cart) error {
		if c.Empty() {
			return ErrEmptyCart
		}
		r = receipt.Build(c.Items(), s.now())
		return nil
	}); err != nil {
		return receipt.Receipt{}, err
	}

	if err := s.journal.Save(ctx, r); err != nil {
		return receipt.Receipt{}, errors.Wrap(err, "save receipt")
	}
	s.receipts.Add(ctx, 1)

	zctx.From(ctx).Info("Receipt issued",
		zap.String("session_id", id),
		zap.String("receipt_id", r.ID),
		zap.Int64("total", r.Total),
		zap.Int("units", r.Units()),
	)
	return r, nil
}

// Receipt returns a previously issued receipt from the journal.
func (s *Service) Receipt(ctx context.Context, receiptID string) (*receipt.Receipt, error) {
	ctx, span := s.startSpan(ctx, "Receipt", attribute.String("receipt.id", receiptID))
	r, err := s.journal.Get(ctx, receiptID)
	endSpan(span, err)
	if err != nil {
		return nil, errors.Wrap(err, "get receipt")
	}
	return r, nil
}

// Receipts lists the most recent receipts from the journal, newest first.
func (s *Service) Receipts(ctx context.Context, limit int) ([]receipt.Receipt, error) {
	list, err := s.journal.List(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list receipts")
	}
	return list, nil
}

// Sessions returns the number of open sessions.
func (s *Service) Sessions() int { return s.store.Len() }
