package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/devnology/storefront/internal/domain/product"
)

type productResponse struct {
	ID                       int64    `json:"id"`
	Name                     string   `json:"name"`
	Description              string   `json:"description"`
	PriceInCents             int64    `json:"priceInCents"`
	HasDiscount              bool     `json:"hasDiscount"`
	DiscountInPercent        int      `json:"discountInPercent,omitempty"`
	PriceWithDiscountInCents int64    `json:"priceWithDiscountInCents"`
	Category                 string   `json:"category"`
	Material                 string   `json:"material"`
	Supplier                 string   `json:"supplier"`
	Images                   []string `json:"images"`
}

func toProductResponse(p product.Product) productResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return productResponse{
		ID:                       p.ID,
		Name:                     p.Name,
		Description:              p.Description,
		PriceInCents:             p.PriceInCents,
		HasDiscount:              p.HasDiscount,
		DiscountInPercent:        p.DiscountInPercent,
		PriceWithDiscountInCents: p.PriceWithDiscountInCents,
		Category:                 p.Category,
		Material:                 p.Material,
		Supplier:                 string(p.Supplier),
		Images:                   images,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*p))
}
