// Package handler exposes the shop over a JSON HTTP API.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/starship-shop/internal/domain/cart"
	"github.com/xenking/starship-shop/internal/domain/checkout"
	"github.com/xenking/starship-shop/internal/shop"
)

// DefaultImageBaseURL serves a deterministic placeholder image per item id.
const DefaultImageBaseURL = "https://picsum.photos/seed"

// Shop is the set of intents the API dispatches.
type Shop interface {
	AddItem(id string) (cart.Line, error)
	RemoveItem(id string) (cart.Line, error)
	SetQuantity(id string, n int) (cart.Line, error)
	ClearCart()
	PlaceOrder(ctx context.Context, method string) (*checkout.Receipt, error)
	Search(ctx context.Context, query string) error
	ClearSearch()
	FetchPage(ctx context.Context, page int) error
	ResetCredits()
	Snapshot() shop.State
}

var _ Shop = (*shop.Shop)(nil)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL prefixes generated item image URLs as
	// "{ImageBaseURL}/{id}/200/120".
	ImageBaseURL string
}

// Handler serves the shop API.
type Handler struct {
	shop         Shop
	imageBaseURL string
}

// New constructs a Handler.
func New(cfg Config, s Shop) *Handler {
	base := cfg.ImageBaseURL
	if base == "" {
		base = DefaultImageBaseURL
	}
	return &Handler{
		shop:         s,
		imageBaseURL: strings.TrimSuffix(base, "/"),
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/starships", func(r chi.Router) {
			r.Get("/", h.ListStarships)
			r.Get("/search", h.SearchStarships)
			r.Delete("/search", h.ClearSearch)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Get("/summary", h.GetSummary)
			r.Post("/items/{id}", h.AddItem)
			r.Delete("/items/{id}", h.RemoveItem)
			r.Put("/items/{id}", h.SetQuantity)
		})
		r.Post("/orders", h.PlaceOrder)
		r.Get("/credits", h.GetCredits)
		r.Delete("/credits", h.ResetCredits)
	})
}

// Router returns a chi router with only the API routes, for tests and
// embedding.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}
