package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
	"github.com/gorilla/mux"

	"github.com/xenking/scankart/internal/domain/product"
)

func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("barcode")
	e.Str(p.Barcode)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("unitPrice")
	e.Int64(p.UnitPrice)
	e.FieldStart("display")
	e.Str(h.printer.Money(p.UnitPrice))
	e.ObjEnd()
}

// listProducts serves GET /products. With ?limit=n it returns the first n
// catalog entries, which front ends render as quick-add buttons.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.List()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, r, badRequest("limit must be a positive integer", err))
			return
		}
		products = h.catalog.Samples(n)
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ArrStart()
	for _, p := range products {
		h.encodeProduct(e, p)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, e)
}

// getProduct serves GET /products/{barcode}.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Lookup(mux.Vars(r)["barcode"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	h.encodeProduct(e, p)
	writeJSON(w, http.StatusOK, e)
}
