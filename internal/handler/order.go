package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// PlaceOrder handles POST /api/orders with an optional body
// {"paymentMethod": "..."}. An empty method selects the default.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var method string
	if len(body) > 0 {
		err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
			if key != "paymentMethod" {
				return d.Skip()
			}
			if d.Next() == jx.Null {
				return d.Null()
			}
			s, err := d.Str()
			method = s
			return errors.Wrap(err, "paymentMethod")
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, `body must be {"paymentMethod": <string>}`)
			return
		}
	}

	receipt, err := h.shop.PlaceOrder(r.Context(), method)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("subtotal")
		e.Str(receipt.Subtotal.String())
		e.FieldStart("tax")
		e.Str(receipt.Tax.String())
		e.FieldStart("total")
		e.Str(receipt.Total.String())
		e.FieldStart("creditsEarned")
		e.Int64(receipt.CreditsEarned)
		e.FieldStart("paymentMethod")
		e.Str(receipt.PaymentMethod)
		e.FieldStart("balance")
		e.Int64(receipt.Balance)
		e.FieldStart("persisted")
		e.Bool(receipt.Persisted)
		e.FieldStart("placedAt")
		e.Str(receipt.PlacedAt.UTC().Format(time.RFC3339))
		e.ObjEnd()
	})
}

// GetCredits handles GET /api/credits.
func (h *Handler) GetCredits(w http.ResponseWriter, _ *http.Request) {
	h.writeCredits(w)
}

// ResetCredits handles DELETE /api/credits.
func (h *Handler) ResetCredits(w http.ResponseWriter, _ *http.Request) {
	h.shop.ResetCredits()
	h.writeCredits(w)
}

func (h *Handler) writeCredits(w http.ResponseWriter) {
	c := h.shop.Snapshot().Credits
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("balance")
		e.Int64(c.Balance)
		e.FieldStart("loading")
		e.Bool(c.Loading)
		e.FieldStart("error")
		if c.Err != nil {
			e.Str(c.Err.Error())
		} else {
			e.Null()
		}
		e.ObjEnd()
	})
}
