package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/starship-shop/internal/domain/cart"
)

// GetCart handles GET /api/cart.
func (h *Handler) GetCart(w http.ResponseWriter, _ *http.Request) {
	h.writeCart(w, http.StatusOK)
}

// ClearCart handles DELETE /api/cart.
func (h *Handler) ClearCart(w http.ResponseWriter, _ *http.Request) {
	h.shop.ClearCart()
	h.writeCart(w, http.StatusOK)
}

// GetSummary handles GET /api/cart/summary.
func (h *Handler) GetSummary(w http.ResponseWriter, _ *http.Request) {
	s := h.shop.Snapshot()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSummary(e, s.Summary)
	})
}

// AddItem handles POST /api/cart/items/{id}.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, h.shop.AddItem)
}

// RemoveItem handles DELETE /api/cart/items/{id}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, h.shop.RemoveItem)
}

// SetQuantity handles PUT /api/cart/items/{id} with body {"quantity": n}.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		quantity int
		seen     bool
	)
	err = jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		seen = true
		n, err := d.Int()
		quantity = n
		return errors.Wrap(err, "quantity")
	})
	if err != nil || !seen {
		writeError(w, http.StatusBadRequest, `body must be {"quantity": <integer>}`)
		return
	}

	h.mutateLine(w, r, func(id string) (cart.Line, error) {
		return h.shop.SetQuantity(id, quantity)
	})
}

func (h *Handler) mutateLine(w http.ResponseWriter, r *http.Request, op func(id string) (cart.Line, error)) {
	if _, err := op(chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK)
}

func (h *Handler) writeCart(w http.ResponseWriter, status int) {
	s := h.shop.Snapshot()
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("lines")
		e.ArrStart()
		for _, l := range s.Cart {
			h.encodeLine(e, l)
		}
		e.ArrEnd()
		e.FieldStart("totalQuantity")
		e.Int(s.TotalQuantity)
		e.FieldStart("totalPrice")
		e.Str(s.TotalPrice.String())
		e.FieldStart("summary")
		encodeSummary(e, s.Summary)
		e.ObjEnd()
	})
}
