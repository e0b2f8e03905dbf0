package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/siacollections/storefront/internal/domain"
	"github.com/siacollections/storefront/internal/repositories"
)

type stubOrderRepo struct {
	createFn func(context.Context, domain.Order) error
	getFn    func(context.Context, string) (domain.Order, error)
	listFn   func(context.Context, int) ([]domain.Order, error)
	statsFn  func(context.Context) (domain.StoreStats, error)
	created  []domain.Order
}

func (s *stubOrderRepo) Create(ctx context.Context, order domain.Order) error {
	s.created = append(s.created, order)
	if s.createFn != nil {
		return s.createFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) Get(ctx context.Context, orderID string) (domain.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx, limit)
	}
	return nil, nil
}

func (s *stubOrderRepo) Stats(ctx context.Context) (domain.StoreStats, error) {
	if s.statsFn != nil {
		return s.statsFn(ctx)
	}
	return domain.StoreStats{}, nil
}

func validOrderCommand() CreateOrderCommand {
	return CreateOrderCommand{
		Customer:      domain.CustomerInfo{FirstName: "Sadia", LastName: "Islam", Email: "sadia@example.com", Phone: "01700000000"},
		Address:       domain.ShippingAddress{Address: "12 Green Road", City: "dhaka"},
		PaymentMethod: domain.PaymentMethodCard,
		Items:         []domain.CartLineItem{{ProductID: "p1", Name: "Makeup Kit", UnitPrice: 2000, Quantity: 1}},
		Summary:       domain.OrderSummary{Subtotal: 2000, Shipping: 100, Total: 2100},
	}
}

func newTestOrderService(t *testing.T, repo repositories.OrderRepository, randInt func(int) int) OrderService {
	t.Helper()
	svc, err := NewOrderService(OrderServiceDeps{
		Repository: repo,
		Prefix:     "SIA",
		Clock:      fixedClock,
		RandInt:    randInt,
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return svc
}

func TestCreateOrderMintsDateStampedID(t *testing.T) {
	repo := &stubOrderRepo{}
	svc := newTestOrderService(t, repo, func(int) int { return 42 })

	order, err := svc.CreateOrder(context.Background(), validOrderCommand())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.ID != "SIA20250623042" {
		t.Fatalf("expected SIA20250623042, got %s", order.ID)
	}
	if order.Status != domain.OrderStatusProcessing {
		t.Fatalf("expected processing status, got %s", order.Status)
	}
	if !order.PlacedAt.Equal(fixedClock()) {
		t.Fatalf("expected placedAt %s, got %s", fixedClock(), order.PlacedAt)
	}
	if order.PlacedAt.Location() != time.UTC {
		t.Fatalf("expected UTC placedAt, got %s", order.PlacedAt.Location())
	}
}

func TestCreateOrderRetriesOnIDCollision(t *testing.T) {
	repo := &stubOrderRepo{}
	repo.createFn = func(_ context.Context, order domain.Order) error {
		if len(repo.created) < 3 {
			return repositories.NewConflict("stub: create", errors.New("document exists"))
		}
		return nil
	}
	suffixes := []int{7, 7, 913}
	calls := 0
	svc := newTestOrderService(t, repo, func(int) int {
		v := suffixes[calls%len(suffixes)]
		calls++
		return v
	})

	order, err := svc.CreateOrder(context.Background(), validOrderCommand())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.ID != "SIA20250623913" {
		t.Fatalf("expected regenerated suffix, got %s", order.ID)
	}
	if len(repo.created) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(repo.created))
	}
}

func TestCreateOrderGivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := &stubOrderRepo{}
	repo.createFn = func(context.Context, domain.Order) error {
		return repositories.NewConflict("stub: create", errors.New("document exists"))
	}
	svc := newTestOrderService(t, repo, func(int) int { return 1 })

	_, err := svc.CreateOrder(context.Background(), validOrderCommand())
	if !errors.Is(err, ErrOrderUnavailable) {
		t.Fatalf("expected ErrOrderUnavailable, got %v", err)
	}
	if len(repo.created) != 3 {
		t.Fatalf("expected 3 attempts before giving up, got %d", len(repo.created))
	}
}

func TestCreateOrderRejectsInvalidInput(t *testing.T) {
	svc := newTestOrderService(t, &stubOrderRepo{}, nil)
	ctx := context.Background()

	empty := validOrderCommand()
	empty.Items = nil
	if _, err := svc.CreateOrder(ctx, empty); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput for empty items, got %v", err)
	}

	badMethod := validOrderCommand()
	badMethod.PaymentMethod = "paypal"
	if _, err := svc.CreateOrder(ctx, badMethod); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput for unknown method, got %v", err)
	}
}

func TestCreateOrderBackendFailureIsNotRetried(t *testing.T) {
	repo := &stubOrderRepo{}
	repo.createFn = func(context.Context, domain.Order) error {
		return repositories.NewUnavailable("stub: create", errors.New("deadline exceeded"))
	}
	svc := newTestOrderService(t, repo, nil)

	_, err := svc.CreateOrder(context.Background(), validOrderCommand())
	if !errors.Is(err, ErrOrderUnavailable) {
		t.Fatalf("expected ErrOrderUnavailable, got %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(repo.created))
	}
}

func TestGetOrderMapsNotFound(t *testing.T) {
	repo := &stubOrderRepo{}
	repo.getFn = func(_ context.Context, id string) (domain.Order, error) {
		return domain.Order{}, repositories.NewNotFound("stub: get", errors.New("missing"))
	}
	svc := newTestOrderService(t, repo, nil)

	_, err := svc.GetOrder(context.Background(), "SIA20250623042")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
