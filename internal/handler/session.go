package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/gorilla/mux"

	"github.com/xenking/scankart/internal/domain/cart"
	"github.com/xenking/scankart/internal/session"
)

// encodeView writes the cart view. Amounts are integers; display holds the
// same amounts formatted for the register locale.
func (h *Handler) encodeView(e *jx.Encoder, v session.View) {
	e.ObjStart()
	e.FieldStart("sessionId")
	e.Str(v.SessionID)
	e.FieldStart("items")
	e.ArrStart()
	for _, li := range v.Items {
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
	e.FieldStart("total")
	e.Int64(v.Total)
	e.FieldStart("units")
	e.Int(v.Units)

	e.FieldStart("display")
	e.ObjStart()
	e.FieldStart("total")
	e.Str(h.printer.Money(v.Total))
	e.FieldStart("items")
	e.ArrStart()
	for _, li := range v.Items {
		e.ObjStart()
		e.FieldStart("barcode")
		e.Str(li.Barcode)
		e.FieldStart("unitPrice")
		e.Str(h.printer.Money(li.UnitPrice))
		e.FieldStart("subtotal")
		e.Str(h.printer.Money(li.Subtotal()))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()

	e.ObjEnd()
}

// respondView writes the view after a cart operation. A missing line is not
// an error for the caller: the unchanged cart is returned.
func (h *Handler) respondView(w http.ResponseWriter, r *http.Request, status int, v session.View, err error) {
	if err != nil && !errors.Is(err, cart.ErrItemNotInCart) {
		h.writeError(w, r, err)
		return
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	h.encodeView(e, v)
	writeJSON(w, status, e)
}

// openSession serves POST /sessions.
func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) {
	v := h.sessions.Open(r.Context())
	w.Header().Set("Location", "/api/sessions/"+v.SessionID+"/cart")
	h.respondView(w, r, http.StatusCreated, v, nil)
}

// closeSession serves DELETE /sessions/{id}.
func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getCart serves GET /sessions/{id}/cart.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	v, err := h.sessions.Cart(r.Context(), mux.Vars(r)["id"])
	h.respondView(w, r, http.StatusOK, v, err)
}

// scanItem serves POST /sessions/{id}/items with {"barcode": "..."}.
func (h *Handler) scanItem(w http.ResponseWriter, r *http.Request) {
	var barcode string
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "barcode" {
			return d.Skip()
		}
		v, err := d.Str()
		barcode = strings.TrimSpace(v)
		return err
	}); err != nil {
		h.writeError(w, r, err)
		return
	}
	if barcode == "" {
		h.writeError(w, r, badRequest("barcode is required", nil))
		return
	}

	v, err := h.sessions.Scan(r.Context(), mux.Vars(r)["id"], barcode)
	h.respondView(w, r, http.StatusOK, v, err)
}

// updateItem serves PUT /sessions/{id}/items/{barcode}. The body sets an
// absolute {"quantity": n} or changes it by {"delta": n}; a resulting
// quantity of zero or less removes the line.
func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var (
		quantity, delta       int
		hasQuantity, hasDelta bool
	)
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "quantity":
			quantity, err = d.Int()
			hasQuantity = true
		case "delta":
			delta, err = d.Int()
			hasDelta = true
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.writeError(w, r, err)
		return
	}
	if hasQuantity == hasDelta {
		h.writeError(w, r, badRequest("exactly one of quantity or delta is required", nil))
		return
	}

	vars := mux.Vars(r)
	var (
		v   session.View
		err error
	)
	if hasQuantity {
		v, err = h.sessions.SetQuantity(r.Context(), vars["id"], vars["barcode"], quantity)
	} else {
		v, err = h.sessions.Adjust(r.Context(), vars["id"], vars["barcode"], delta)
	}
	h.respondView(w, r, http.StatusOK, v, err)
}

// removeItem serves DELETE /sessions/{id}/items/{barcode}.
func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	v, err := h.sessions.Remove(r.Context(), vars["id"], vars["barcode"])
	h.respondView(w, r, http.StatusOK, v, err)
}

// clearCart serves DELETE /sessions/{id}/items.
func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	v, err := h.sessions.Clear(r.Context(), mux.Vars(r)["id"])
	h.respondView(w, r, http.StatusOK, v, err)
}
