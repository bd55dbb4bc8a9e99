package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/starship-shop/internal/domain/catalog"
	"github.com/xenking/starship-shop/internal/domain/checkout"
	"github.com/xenking/starship-shop/internal/domain/credits"
	"github.com/xenking/starship-shop/internal/shop"
)

// mapError converts a domain error to an HTTP status and a user-facing
// message.
func mapError(err error) (int, string) {
	var verr *checkout.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, verr.Message
	}

	var nerr *catalog.NetworkError
	if errors.As(err, &nerr) {
		return http.StatusBadGateway, nerr.Error()
	}

	var serr *credits.StorageError
	if errors.As(err, &serr) {
		return http.StatusServiceUnavailable, "Reward credits could not be saved."
	}

	switch {
	case errors.Is(err, shop.ErrUnknownItem):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, shop.ErrThrottled):
		return http.StatusTooManyRequests, shop.ErrThrottled.Error()
	case errors.Is(err, shop.ErrPriceUnavailable):
		return http.StatusUnprocessableEntity, "This starship has no price and cannot be added to the cart."
	case errors.Is(err, shop.ErrOrderInProgress):
		return http.StatusConflict, shop.ErrOrderInProgress.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapError(err)
	lg := zctx.From(r.Context())
	if status >= http.StatusInternalServerError {
		lg.Error("Request failed", zap.Int("status", status), zap.Error(err))
	} else {
		lg.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(msg)
		e.ObjEnd()
	})
}
