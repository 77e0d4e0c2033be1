// Package handler exposes the register over a JSON HTTP API.
package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xenking/scankart/internal/domain/cart"
	"github.com/xenking/scankart/internal/domain/product"
	"github.com/xenking/scankart/internal/domain/receipt"
	"github.com/xenking/scankart/internal/printout"
	"github.com/xenking/scankart/internal/session"
)

// maxBodySize bounds request bodies; every request body is a tiny object.
const maxBodySize = 64 << 10

// Catalog is the read side of the product catalog the API serves.
type Catalog interface {
	product.Catalog
	List() []product.Product
	Samples(n int) []product.Product
}

// Config holds non-dependency settings of the Handler.
type Config struct {
	// ReceiptListLimit caps GET /receipts. Defaults to 50.
	ReceiptListLimit int
}

// Handler serves the register API. It holds no state of its own; carts live
// in the session service.
type Handler struct {
	catalog  Catalog
	sessions *session.Service
	printer  *printout.Printer
	maxList  int
}

// New creates a Handler.
func New(cfg Config, catalog Catalog, sessions *session.Service, printer *printout.Printer) *Handler {
	if cfg.ReceiptListLimit <= 0 {
		cfg.ReceiptListLimit = 50
	}
	return &Handler{
		catalog:  catalog,
		sessions: sessions,
		printer:  printer,
		maxList:  cfg.ReceiptListLimit,
	}
}

// Register mounts the API routes on r. Callers usually pass a subrouter for
// the "/api" prefix.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/{barcode}", h.getProduct).Methods(http.MethodGet)

	r.HandleFunc("/sessions", h.openSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", h.closeSession).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/cart", h.getCart).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/items", h.scanItem).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/items", h.clearCart).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/items/{barcode}", h.updateItem).Methods(http.MethodPut)
	r.HandleFunc("/sessions/{id}/items/{barcode}", h.removeItem).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/receipt", h.issueReceipt).Methods(http.MethodPost)

	r.HandleFunc("/receipts", h.listReceipts).Methods(http.MethodGet)
	r.HandleFunc("/receipts/{id}", h.getReceipt).Methods(http.MethodGet)
}

// badRequestError reports a malformed request.
type badRequestError struct {
	msg string
	err error
}

func (e *badRequestError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &badRequestError{msg: msg, err: err}
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	var badReq *badRequestError
	switch {
	case errors.As(err, &badReq):
		return http.StatusBadRequest
	// Checked before product.ErrNotFound, which it wraps.
	case errors.Is(err, cart.ErrUnknownBarcode),
		errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, receipt.ErrNotFound),
		errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrEmptyCart):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal error"
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()
	writeJSON(w, status, e)
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// decodeBody reads a JSON object from the request body, calling field for
// each key.
func decodeBody(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return badRequest("read body", err)
	}
	if len(data) == 0 {
		return badRequest("empty body", nil)
	}
	if err := jx.DecodeBytes(data).Obj(field); err != nil {
		return badRequest("invalid JSON body", err)
	}
	return nil
}
