package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/xenking/scankart/internal/domain/receipt"
)

// issueReceipt serves POST /sessions/{id}/receipt?format=json|text|html.
func (h *Handler) issueReceipt(w http.ResponseWriter, r *http.Request) {
	format, err := receiptFormat(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rc, err := h.sessions.IssueReceipt(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/receipts/"+rc.ID)
	h.writeReceipt(w, r, http.StatusCreated, format, rc)
}

// getReceipt serves GET /receipts/{id}, reprinting a journaled receipt.
func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	format, err := receiptFormat(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		h.writeError(w, r, receipt.ErrNotFound)
		return
	}
	rc, err := h.sessions.Receipt(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeReceipt(w, r, http.StatusOK, format, *rc)
}

// listReceipts serves GET /receipts?limit=n, newest first.
func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	limit := h.maxList
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, r, badRequest("limit must be a positive integer", err))
			return
		}
		limit = min(n, h.maxList)
	}

	list, err := h.sessions.Receipts(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ArrStart()
	for _, rc := range list {
		rc.Encode(e)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, e)
}

const (
	formatJSON = "json"
	formatText = "text"
	formatHTML = "html"
)

func receiptFormat(r *http.Request) (string, error) {
	switch f := r.URL.Query().Get("format"); f {
	case "", formatJSON:
		return formatJSON, nil
	case formatText, formatHTML:
		return f, nil
	default:
		return "", badRequest("format must be json, text or html", nil)
	}
}

func (h *Handler) writeReceipt(w http.ResponseWriter, r *http.Request, status int, format string, rc receipt.Receipt) {
	switch format {
	case formatText, formatHTML:
		var (
			buf         bytes.Buffer
			err         error
			contentType string
		)
		if format == formatText {
			err = h.printer.Text(&buf, rc)
			contentType = "text/plain; charset=utf-8"
		} else {
			err = h.printer.HTML(&buf, rc)
			contentType = "text/html; charset=utf-8"
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = buf.WriteTo(w)
	default:
		e := jx.GetEncoder()
		defer jx.PutEncoder(e)
		rc.Encode(e)
		writeJSON(w, status, e)
	}
}
