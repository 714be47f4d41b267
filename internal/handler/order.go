package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/devnology/storefront/internal/domain/order"
)

type createOrderRequest struct {
	Products []cartLineRequest `json:"products"`
}

type cartLineRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type orderResponse struct {
	ID                string              `json:"id"`
	Status            string              `json:"status"`
	TotalPriceInCents int64               `json:"totalPriceInCents"`
	CreatedAt         time.Time           `json:"createdAt"`
	Products          []orderLineResponse `json:"products"`
}

// orderLineResponse exposes the price fields exactly as frozen at order
// creation time.
type orderLineResponse struct {
	ProductID                int64  `json:"productId"`
	ProductName              string `json:"productName"`
	PriceInCents             int64  `json:"priceInCents"`
	HasDiscount              bool   `json:"hasDiscount"`
	DiscountInPercent        int    `json:"discountInPercent,omitempty"`
	PriceWithDiscountInCents int64  `json:"priceWithDiscountInCents"`
	Quantity                 int    `json:"quantity"`
}

func toOrderResponse(o order.Order) orderResponse {
	lines := make([]orderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineResponse{
			ProductID:                l.ProductID,
			ProductName:              l.ProductName,
			PriceInCents:             l.PriceInCents,
			HasDiscount:              l.HasDiscount,
			DiscountInPercent:        l.DiscountInPercent,
			PriceWithDiscountInCents: l.PriceWithDiscountInCents,
			Quantity:                 l.Quantity,
		}
	}
	return orderResponse{
		ID:                o.ID,
		Status:            string(o.Status),
		TotalPriceInCents: o.TotalPriceInCents,
		CreatedAt:         o.CreatedAt,
		Products:          lines,
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or missing credentials")
		return
	}

	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	lines := make([]order.CartLine, len(req.Products))
	for i, p := range req.Products {
		lines[i] = order.CartLine{ProductID: p.ProductID, Quantity: p.Quantity}
	}

	o, err := h.orders.Create(r.Context(), userID, lines)
	if err != nil {
		h.mapOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(*o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or missing credentials")
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, out)
}

// mapOrderError converts pricing engine errors to the user-facing taxonomy:
// validation failures are 400, unknown products 422, everything else an
// opaque 500.
func (h *Handler) mapOrderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, order.ErrEmptyCart) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		writeError(w, http.StatusBadRequest, iqErr.Error())
		return
	}

	var pnfErr *order.ProductNotFoundError
	if errors.As(err, &pnfErr) {
		writeError(w, http.StatusUnprocessableEntity, pnfErr.Error())
		return
	}

	writeInternalError(w, r, err)
}
