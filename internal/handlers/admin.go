package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/siacollections/storefront/internal/domain"
	"github.com/siacollections/storefront/internal/platform/httpx"
	"github.com/siacollections/storefront/internal/services"
)

type adminContextKey struct{}

// AdminHandlers exposes the dashboard endpoints: sign-in, order listings and
// the headline stats.
type AdminHandlers struct {
	auth      services.AdminAuthService
	orders    services.OrderService
	catalog   services.CatalogService
	sessions  *SessionManager
	cookieTTL int
}

// NewAdminHandlers constructs the dashboard handlers. cookieTTLSeconds bounds
// the lifetime of the issued session cookie.
func NewAdminHandlers(auth services.AdminAuthService, orders services.OrderService, catalog services.CatalogService, sessions *SessionManager, cookieTTLSeconds int) *AdminHandlers {
	return &AdminHandlers{
		auth:      auth,
		orders:    orders,
		catalog:   catalog,
		sessions:  sessions,
		cookieTTL: cookieTTLSeconds,
	}
}

// Routes wires the /admin endpoints onto the provided router. Everything past
// login sits behind the session check.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/login", h.login)
	r.Group(func(protected chi.Router) {
		protected.Use(h.requireAdmin)
		protected.Post("/logout", h.logout)
		protected.Get("/orders", h.listOrders)
		protected.Get("/orders/{orderID}", h.getOrder)
		protected.Get("/stats", h.stats)
	})
}

// requireAdmin resolves the session token and injects the identity into the
// request context.
func (h *AdminHandlers) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := h.auth.Verify(ctx, adminToken(r))
		if err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, adminContextKey{}, identity)))
	})
}

// AdminIdentityFromContext returns the authenticated admin for requests that
// passed the session check.
func AdminIdentityFromContext(ctx context.Context) (domain.AdminIdentity, bool) {
	identity, ok := ctx.Value(adminContextKey{}).(domain.AdminIdentity)
	return identity, ok
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

type loginResponse struct {
	Token string          `json:"token"`
	Admin identityPayload `json:"admin"`
}

func (h *AdminHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	session, err := h.auth.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	h.sessions.SetAdminCookie(w, session.Token, h.cookieTTL)
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Token: session.Token,
		Admin: identityPayload{
			ID:    session.Identity.ID,
			Email: session.Identity.Email,
			Name:  session.Identity.Name,
			Role:  session.Identity.Role,
		},
	})
}

func (h *AdminHandlers) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.auth.SignOut(ctx, adminToken(r)); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.sessions.ClearAdminCookie(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

type orderListPayload struct {
	Orders []orderPayload `json:"orders"`
}

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be a non-negative integer", http.StatusBadRequest))
			return
		}
		limit = parsed
	}

	orders, err := h.orders.ListRecent(ctx, limit)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payload := orderListPayload{Orders: make([]orderPayload, 0, len(orders))}
	for _, order := range orders {
		payload.Orders = append(payload.Orders, buildOrderPayload(order))
	}
	httpx.WriteJSON(w, http.StatusOK, payload)
}

func (h *AdminHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderPayload(order))
}

type statsPayload struct {
	TotalOrders   int64 `json:"totalOrders"`
	TotalRevenue  int64 `json:"totalRevenue"`
	TotalProducts int64 `json:"totalProducts"`
}

func (h *AdminHandlers) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.orders.Stats(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	// Product count comes from the catalog; an outage there degrades the
	// number to zero instead of failing the whole dashboard.
	if h.catalog != nil {
		if listing, err := h.catalog.ListProducts(ctx, services.ProductQuery{Limit: 200}); err == nil {
			stats.TotalProducts = int64(len(listing.Products))
		}
	}

	httpx.WriteJSON(w, http.StatusOK, statsPayload{
		TotalOrders:   stats.TotalOrders,
		TotalRevenue:  stats.TotalRevenue,
		TotalProducts: stats.TotalProducts,
	})
}
