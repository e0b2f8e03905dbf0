package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/siacollections/storefront/internal/domain"
	"github.com/siacollections/storefront/internal/platform/httpx"
	"github.com/siacollections/storefront/internal/services"
)

// CatalogHandlers exposes the public product endpoints.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs the catalog handlers.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes wires the /products endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Get("/{productID}", h.get)
}

type productPayload struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	SalePrice     *int64 `json:"salePrice,omitempty"`
	OnSale        bool   `json:"onSale"`
	ImageURL      string `json:"image,omitempty"`
	Brand         string `json:"brand,omitempty"`
	SKU           string `json:"sku,omitempty"`
	Category      string `json:"category,omitempty"`
	StockQuantity int    `json:"stockQuantity"`
	Featured      bool   `json:"isFeatured"`
}

type productListPayload struct {
	Products       []productPayload `json:"products"`
	FromSampleData bool             `json:"fromSampleData,omitempty"`
}

func (h *CatalogHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	query := services.ProductQuery{
		Category:     strings.TrimSpace(r.URL.Query().Get("category")),
		FeaturedOnly: r.URL.Query().Get("featured") == "true",
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be a non-negative integer", http.StatusBadRequest))
			return
		}
		query.Limit = limit
	}

	listing, err := h.catalog.ListProducts(ctx, query)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payload := productListPayload{
		Products:       make([]productPayload, 0, len(listing.Products)),
		FromSampleData: listing.FromSampleData,
	}
	for _, product := range listing.Products {
		payload.Products = append(payload.Products, buildProductPayload(product))
	}
	httpx.WriteJSON(w, http.StatusOK, payload)
}

func (h *CatalogHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildProductPayload(product))
}

func buildProductPayload(product domain.Product) productPayload {
	return productPayload{
		ID:            product.ID,
		Name:          product.Name,
		Price:         product.Price,
		SalePrice:     product.SalePrice,
		OnSale:        product.OnSale(),
		ImageURL:      product.ImageURL,
		Brand:         product.Brand,
		SKU:           product.SKU,
		Category:      product.Category,
		StockQuantity: product.StockQuantity,
		Featured:      product.Featured,
	}
}
