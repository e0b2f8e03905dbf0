package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/siacollections/storefront/internal/platform/httpx"
	"github.com/siacollections/storefront/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers exposes the shopper cart endpoints. The cart is addressed by
// the session cookie, never by a client-supplied identifier.
type CartHandlers struct {
	carts    services.CartService
	sessions *SessionManager
}

// NewCartHandlers constructs the cart handlers.
func NewCartHandlers(carts services.CartService, sessions *SessionManager) *CartHandlers {
	return &CartHandlers{carts: carts, sessions: sessions}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Put("/items/{productID}", h.setQuantity)
	r.Delete("/items/{productID}", h.removeItem)
}

type cartItemPayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	ListPrice int64  `json:"originalPrice"`
	ImageURL  string `json:"image,omitempty"`
	Brand     string `json:"brand,omitempty"`
	SKU       string `json:"sku,omitempty"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"lineTotal"`
}

type cartPayload struct {
	ID        string            `json:"id"`
	Items     []cartItemPayload `json:"items"`
	ItemCount int               `json:"itemCount"`
	Subtotal  int64             `json:"subtotal"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func buildCartPayload(view services.CartView) cartPayload {
	payload := cartPayload{
		ID:        view.Cart.ID,
		Items:     make([]cartItemPayload, 0, len(view.Cart.Items)),
		ItemCount: view.ItemCount,
		Subtotal:  view.Subtotal,
		UpdatedAt: view.Cart.UpdatedAt,
	}
	for _, item := range view.Cart.Items {
		payload.Items = append(payload.Items, cartItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.UnitPrice,
			ListPrice: item.ListPrice,
			ImageURL:  item.ImageURL,
			Brand:     item.Brand,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		})
	}
	return payload
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.carts.Get(ctx, h.sessions.CartID(w, r))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCartPayload(view))
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.carts.Clear(ctx, h.sessions.CartID(w, r))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCartPayload(view))
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addItemRequest
	if err := decodeJSONBody(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	view, err := h.carts.AddItem(ctx, services.AddItemCommand{
		CartID:    h.sessions.CartID(w, r),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCartPayload(view))
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandlers) setQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req setQuantityRequest
	if err := decodeJSONBody(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	view, err := h.carts.SetQuantity(ctx, services.SetQuantityCommand{
		CartID:    h.sessions.CartID(w, r),
		ProductID: chi.URLParam(r, "productID"),
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCartPayload(view))
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.carts.RemoveItem(ctx, h.sessions.CartID(w, r), chi.URLParam(r, "productID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCartPayload(view))
}

// decodeJSONBody reads a size-bounded JSON body into dst, rejecting unknown
// fields and trailing garbage.
func decodeJSONBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxCartBodySize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return errors.New("request body is not valid JSON for this endpoint")
	}
	if decoder.More() {
		return errors.New("request body contains trailing data")
	}
	return nil
}
