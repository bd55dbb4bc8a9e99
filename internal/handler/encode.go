package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/starship-shop/internal/currency"
	"github.com/xenking/starship-shop/internal/domain/cart"
	"github.com/xenking/starship-shop/internal/domain/catalog"
	"github.com/xenking/starship-shop/internal/domain/checkout"
)

const maxBodySize = 1 << 16

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if len(body) > maxBodySize {
		return nil, errors.New("request body too large")
	}
	return body, nil
}

func (h *Handler) imageURL(id string) string {
	return h.imageBaseURL + "/" + id + "/200/120"
}

func (h *Handler) encodeItem(e *jx.Encoder, it catalog.Item) {
	price := currency.Convert(it.Cost)

	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("model")
	e.Str(it.Model)
	e.FieldStart("manufacturer")
	e.Str(it.Manufacturer)
	e.FieldStart("starshipClass")
	e.Str(it.StarshipClass)
	e.FieldStart("costInCredits")
	e.Str(it.Cost.Raw())
	e.FieldStart("price")
	e.Str(price.String())
	e.FieldStart("priceAvailable")
	e.Bool(price.Available())
	e.FieldStart("imageUrl")
	e.Str(h.imageURL(it.ID))
	e.ObjEnd()
}

func (h *Handler) encodeItems(e *jx.Encoder, items []catalog.Item) {
	e.ArrStart()
	for _, it := range items {
		h.encodeItem(e, it)
	}
	e.ArrEnd()
}

func (h *Handler) encodeLine(e *jx.Encoder, l cart.Line) {
	e.ObjStart()
	e.FieldStart("item")
	h.encodeItem(e, l.Item)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("unitPrice")
	e.Str(l.UnitPrice().String())
	e.FieldStart("subtotal")
	e.Str(l.Subtotal().String())
	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s checkout.Summary) {
	e.ObjStart()
	e.FieldStart("subtotal")
	e.Str(s.Subtotal.String())
	e.FieldStart("tax")
	e.Str(s.Tax.String())
	e.FieldStart("total")
	e.Str(s.Total.String())
	e.FieldStart("creditsEarned")
	e.Int64(s.CreditsEarned)
	e.ObjEnd()
}
