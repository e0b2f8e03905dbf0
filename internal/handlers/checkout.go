package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/siacollections/storefront/internal/domain"
	"github.com/siacollections/storefront/internal/platform/httpx"
	"github.com/siacollections/storefront/internal/services"
)

// CheckoutHandlers exposes the checkout flow for the shopper's session cart.
type CheckoutHandlers struct {
	checkout services.CheckoutService
	sessions *SessionManager
}

// NewCheckoutHandlers constructs the checkout handlers.
func NewCheckoutHandlers(checkout services.CheckoutService, sessions *SessionManager) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout, sessions: sessions}
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.get)
	r.Post("/continue", h.next)
	r.Post("/previous", h.previous)
	r.Patch("/fields", h.setFields)
	r.Post("/submit", h.submit)
}

type summaryPayload struct {
	Subtotal  int64 `json:"subtotal"`
	Shipping  int64 `json:"shipping"`
	CODCharge int64 `json:"codCharge"`
	Total     int64 `json:"total"`
}

type orderPayload struct {
	ID            string            `json:"id"`
	FirstName     string            `json:"firstName"`
	LastName      string            `json:"lastName"`
	Email         string            `json:"email"`
	Phone         string            `json:"phone"`
	Address       string            `json:"address"`
	City          string            `json:"city"`
	PostalCode    string            `json:"postalCode,omitempty"`
	PaymentMethod string            `json:"paymentMethod"`
	Items         []cartItemPayload `json:"items"`
	Notes         string            `json:"notes,omitempty"`
	Summary       summaryPayload    `json:"summary"`
	Status        string            `json:"status"`
	PlacedAt      time.Time         `json:"placedAt"`
}

type checkoutPayload struct {
	Step          string            `json:"step"`
	FirstName     string            `json:"firstName"`
	LastName      string            `json:"lastName"`
	Email         string            `json:"email"`
	Phone         string            `json:"phone"`
	Address       string            `json:"address"`
	City          string            `json:"city"`
	PostalCode    string            `json:"postalCode"`
	PaymentMethod string            `json:"paymentMethod"`
	Notes         string            `json:"notes"`
	ItemCount     int               `json:"itemCount"`
	Summary       summaryPayload    `json:"summary"`
	FieldErrors   map[string]string `json:"fieldErrors,omitempty"`
	Order         *orderPayload     `json:"order,omitempty"`
}

func buildCheckoutPayload(view services.CheckoutView) checkoutPayload {
	payload := checkoutPayload{
		Step:          string(view.Step),
		FirstName:     view.Customer.FirstName,
		LastName:      view.Customer.LastName,
		Email:         view.Customer.Email,
		Phone:         view.Customer.Phone,
		Address:       view.Address.Address,
		City:          view.Address.City,
		PostalCode:    view.Address.PostalCode,
		PaymentMethod: string(view.PaymentMethod),
		Notes:         view.Notes,
		ItemCount:     view.ItemCount,
		Summary:       buildSummaryPayload(view.Summary),
		FieldErrors:   view.FieldErrors,
	}
	if view.Order != nil {
		order := buildOrderPayload(*view.Order)
		payload.Order = &order
	}
	return payload
}

func buildSummaryPayload(summary domain.OrderSummary) summaryPayload {
	return summaryPayload{
		Subtotal:  summary.Subtotal,
		Shipping:  summary.Shipping,
		CODCharge: summary.CODCharge,
		Total:     summary.Total,
	}
}

func buildOrderPayload(order domain.Order) orderPayload {
	payload := orderPayload{
		ID:            order.ID,
		FirstName:     order.Customer.FirstName,
		LastName:      order.Customer.LastName,
		Email:         order.Customer.Email,
		Phone:         order.Customer.Phone,
		Address:       order.Address.Address,
		City:          order.Address.City,
		PostalCode:    order.Address.PostalCode,
		PaymentMethod: string(order.PaymentMethod),
		Items:         make([]cartItemPayload, 0, len(order.Items)),
		Notes:         order.Notes,
		Summary:       buildSummaryPayload(order.Summary),
		Status:        string(order.Status),
		PlacedAt:      order.PlacedAt,
	}
	for _, item := range order.Items {
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

func (h *CheckoutHandlers) get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.checkout.Get)
}

func (h *CheckoutHandlers) next(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.checkout.Continue)
}

func (h *CheckoutHandlers) previous(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.checkout.Previous)
}

func (h *CheckoutHandlers) submit(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.checkout.Submit)
}

func (h *CheckoutHandlers) respond(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, cartID string) (services.CheckoutView, error)) {
	ctx := r.Context()
	view, err := op(ctx, h.sessions.CartID(w, r))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCheckoutPayload(view))
}

type setFieldsRequest struct {
	FirstName     *string `json:"firstName"`
	LastName      *string `json:"lastName"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Address       *string `json:"address"`
	City          *string `json:"city"`
	PostalCode    *string `json:"postalCode"`
	PaymentMethod *string `json:"paymentMethod"`
	Notes         *string `json:"notes"`
}

func (h *CheckoutHandlers) setFields(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req setFieldsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	view, err := h.checkout.SetFields(ctx, services.SetCheckoutFieldsCommand{
		CartID:        h.sessions.CartID(w, r),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		PostalCode:    req.PostalCode,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCheckoutPayload(view))
}
