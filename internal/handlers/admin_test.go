package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/siacollections/storefront/internal/domain"
	"github.com/siacollections/storefront/internal/services"
)

type stubAuthService struct {
	signInFn  func(context.Context, string, string) (services.AdminSession, error)
	signOutFn func(context.Context, string) error
	verifyFn  func(context.Context, string) (domain.AdminIdentity, error)
}

func (s *stubAuthService) SignIn(ctx context.Context, email, password string) (services.AdminSession, error) {
	if s.signInFn != nil {
		return s.signInFn(ctx, email, password)
	}
	return services.AdminSession{}, services.ErrAuthInvalidCredentials
}

func (s *stubAuthService) SignOut(ctx context.Context, token string) error {
	if s.signOutFn != nil {
		return s.signOutFn(ctx, token)
	}
	return nil
}

func (s *stubAuthService) Verify(ctx context.Context, token string) (domain.AdminIdentity, error) {
	if s.verifyFn != nil {
		return s.verifyFn(ctx, token)
	}
	return domain.AdminIdentity{}, services.ErrAuthSessionExpired
}

type stubOrderService struct {
	listFn  func(context.Context, int) ([]domain.Order, error)
	getFn   func(context.Context, string) (domain.Order, error)
	statsFn func(context.Context) (domain.StoreStats, error)
}

func (s *stubOrderService) CreateOrder(context.Context, services.CreateOrderCommand) (domain.Order, error) {
	return domain.Order{}, services.ErrOrderUnavailable
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return domain.Order{}, services.ErrOrderNotFound
}

func (s *stubOrderService) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx, limit)
	}
	return nil, nil
}

func (s *stubOrderService) Stats(ctx context.Context) (domain.StoreStats, error) {
	if s.statsFn != nil {
		return s.statsFn(ctx)
	}
	return domain.StoreStats{}, nil
}

type stubCatalogService struct {
	listFn func(context.Context, services.ProductQuery) (services.ProductListing, error)
}

func (s *stubCatalogService) ListProducts(ctx context.Context, query services.ProductQuery) (services.ProductListing, error) {
	if s.listFn != nil {
		return s.listFn(ctx, query)
	}
	return services.ProductListing{}, nil
}

func (s *stubCatalogService) GetProduct(context.Context, string) (domain.Product, error) {
	return domain.Product{}, services.ErrCatalogProductNotFound
}

func newAdminTestRouter(auth services.AdminAuthService, orders services.OrderService, catalog services.CatalogService) chi.Router {
	handlers := NewAdminHandlers(auth, orders, catalog, NewSessionManager(false), 3600)
	r := chi.NewRouter()
	r.Route("/admin", handlers.Routes)
	return r
}

func verifyingAuth(token string, identity domain.AdminIdentity) *stubAuthService {
	return &stubAuthService{verifyFn: func(_ context.Context, got string) (domain.AdminIdentity, error) {
		if got == token {
			return identity, nil
		}
		return domain.AdminIdentity{}, services.ErrAuthSessionExpired
	}}
}

func TestAdminLoginSetsCookie(t *testing.T) {
	auth := &stubAuthService{signInFn: func(_ context.Context, email, password string) (services.AdminSession, error) {
		if email != "admin@siacollections.shop" || password != "admin123" {
			return services.AdminSession{}, services.ErrAuthInvalidCredentials
		}
		return services.AdminSession{
			Token:    "tok-1",
			Identity: domain.AdminIdentity{ID: "u1", Email: email, Role: "admin"},
		}, nil
	}}
	router := newAdminTestRouter(auth, &stubOrderService{}, &stubCatalogService{})

	body := strings.NewReader(`{"email":"admin@siacollections.shop","password":"admin123"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/login", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var payload struct {
		Token string `json:"token"`
		Admin struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"admin"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.Token != "tok-1" || payload.Admin.Role != "admin" {
		t.Fatalf("unexpected payload %+v", payload)
	}

	found := false
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == "sia_admin" && cookie.Value == "tok-1" && cookie.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatal("expected sia_admin cookie to be set")
	}
}

func TestAdminLoginRejectsBadCredentials(t *testing.T) {
	router := newAdminTestRouter(&stubAuthService{}, &stubOrderService{}, &stubCatalogService{})

	body := strings.NewReader(`{"email":"admin@siacollections.shop","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/login", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestAdminOrdersRequireSession(t *testing.T) {
	router := newAdminTestRouter(&stubAuthService{}, &stubOrderService{}, &stubCatalogService{})

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rr.Code)
	}
}

func TestAdminOrdersListsWithSession(t *testing.T) {
	orders := &stubOrderService{listFn: func(_ context.Context, limit int) ([]domain.Order, error) {
		if limit != 5 {
			t.Fatalf("expected limit 5, got %d", limit)
		}
		return []domain.Order{{
			ID:            "SIA20250623042",
			PaymentMethod: domain.PaymentMethodCOD,
			Summary:       domain.OrderSummary{Subtotal: 5000, Shipping: 200, CODCharge: 50, Total: 5250},
			Status:        domain.OrderStatusProcessing,
			PlacedAt:      time.Date(2025, 6, 23, 10, 0, 0, 0, time.UTC),
		}}, nil
	}}
	auth := verifyingAuth("tok-1", domain.AdminIdentity{ID: "u1", Role: "admin"})
	router := newAdminTestRouter(auth, orders, &stubCatalogService{})

	req := httptest.NewRequest(http.MethodGet, "/admin/orders?limit=5", nil)
	req.AddCookie(&http.Cookie{Name: "sia_admin", Value: "tok-1"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var payload struct {
		Orders []struct {
			ID      string `json:"id"`
			Summary struct {
				Total int64 `json:"total"`
			} `json:"summary"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(payload.Orders) != 1 || payload.Orders[0].ID != "SIA20250623042" || payload.Orders[0].Summary.Total != 5250 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestAdminBearerTokenAccepted(t *testing.T) {
	auth := verifyingAuth("tok-9", domain.AdminIdentity{ID: "u1", Role: "admin"})
	router := newAdminTestRouter(auth, &stubOrderService{}, &stubCatalogService{})

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer tok-9")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with bearer token, got %d", rr.Code)
	}
}

func TestAdminStatsCombineOrdersAndCatalog(t *testing.T) {
	orders := &stubOrderService{statsFn: func(context.Context) (domain.StoreStats, error) {
		return domain.StoreStats{TotalOrders: 12, TotalRevenue: 45600}, nil
	}}
	catalog := &stubCatalogService{listFn: func(context.Context, services.ProductQuery) (services.ProductListing, error) {
		return services.ProductListing{Products: make([]domain.Product, 8)}, nil
	}}
	auth := verifyingAuth("tok-1", domain.AdminIdentity{ID: "u1"})
	router := newAdminTestRouter(auth, orders, catalog)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.AddCookie(&http.Cookie{Name: "sia_admin", Value: "tok-1"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload struct {
		TotalOrders   int64 `json:"totalOrders"`
		TotalRevenue  int64 `json:"totalRevenue"`
		TotalProducts int64 `json:"totalProducts"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.TotalOrders != 12 || payload.TotalRevenue != 45600 || payload.TotalProducts != 8 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestAdminLogoutClearsCookie(t *testing.T) {
	var removedToken string
	auth := verifyingAuth("tok-1", domain.AdminIdentity{ID: "u1"})
	auth.signOutFn = func(_ context.Context, token string) error {
		removedToken = token
		return nil
	}
	router := newAdminTestRouter(auth, &stubOrderService{}, &stubCatalogService{})

	req := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	req.AddCookie(&http.Cookie{Name: "sia_admin", Value: "tok-1"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if removedToken != "tok-1" {
		t.Fatalf("expected tok-1 removed, got %q", removedToken)
	}

	cleared := false
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == "sia_admin" && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected sia_admin cookie to be expired")
	}
}
