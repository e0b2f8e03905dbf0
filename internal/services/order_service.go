package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/siacollections/storefront/internal/domain"
	"github.com/siacollections/storefront/internal/platform/metrics"
	"github.com/siacollections/storefront/internal/repositories"
)

var (
	// ErrOrderInvalidInput indicates the caller supplied invalid input.
	ErrOrderInvalidInput = errors.New("order service: invalid input")
	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.New("order service: not found")
	// ErrOrderUnavailable indicates the order backend cannot fulfil the request.
	ErrOrderUnavailable = errors.New("order service: unavailable")
)

// orderIDAttempts bounds how many fresh random suffixes are tried when the
// generated order number collides with an existing record.
const orderIDAttempts = 3

// OrderServiceDeps wires the persistence and id-generation dependencies for
// order operations.
type OrderServiceDeps struct {
	Repository repositories.OrderRepository
	Prefix     string
	Clock      func() time.Time
	RandInt    func(n int) int
	Logger     func(context.Context, string, map[string]any)
	Metrics    *metrics.Metrics
}

type orderService struct {
	repo    repositories.OrderRepository
	prefix  string
	now     func() time.Time
	randInt func(n int) int
	logger  func(context.Context, string, map[string]any)
	metrics *metrics.Metrics
}

// NewOrderService constructs an OrderService enforcing dependency validation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Repository == nil {
		return nil, errors.New("order service: repository is required")
	}
	if deps.Clock == nil {
		return nil, errors.New("order service: clock is required")
	}
	prefix := strings.TrimSpace(deps.Prefix)
	if prefix == "" {
		prefix = "SIA"
	}
	randInt := deps.RandInt
	if randInt == nil {
		randInt = rand.Intn
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &orderService{
		repo:    deps.Repository,
		prefix:  prefix,
		now:     func() time.Time { return deps.Clock().UTC() },
		randInt: randInt,
		logger:  logger,
		metrics: deps.Metrics,
	}, nil
}

// CreateOrder mints an order number, snapshots the command into an immutable
// record and persists it. A number collision gets a fresh random suffix; after
// the retry budget is spent the submission fails rather than overwrite.
func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	if len(cmd.Items) == 0 {
		return domain.Order{}, fmt.Errorf("%w: order has no items", ErrOrderInvalidInput)
	}
	if !cmd.PaymentMethod.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unknown payment method %q", ErrOrderInvalidInput, cmd.PaymentMethod)
	}

	placedAt := s.now()
	order := domain.Order{
		Customer:      cmd.Customer,
		Address:       cmd.Address,
		PaymentMethod: cmd.PaymentMethod,
		Items:         append([]domain.CartLineItem(nil), cmd.Items...),
		Notes:         strings.TrimSpace(cmd.Notes),
		Summary:       cmd.Summary,
		Status:        domain.OrderStatusProcessing,
		PlacedAt:      placedAt,
	}

	var lastErr error
	for attempt := 0; attempt < orderIDAttempts; attempt++ {
		order.ID = s.newOrderID(placedAt)
		err := s.repo.Create(ctx, order)
		if err == nil {
			s.metrics.IncrementOrdersPlaced()
			s.logger(ctx, "order.placed", map[string]any{
				"order_id": order.ID,
				"total":    order.Summary.Total,
				"method":   string(order.PaymentMethod),
			})
			return order, nil
		}
		if repositories.IsConflict(err) {
			lastErr = err
			continue
		}
		s.metrics.IncrementOrdersFailed()
		return domain.Order{}, fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
	}

	s.metrics.IncrementOrdersFailed()
	return domain.Order{}, fmt.Errorf("%w: order number collision persisted: %v", ErrOrderUnavailable, lastErr)
}

// GetOrder loads one order by its order number.
func (s *orderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.repo.Get(ctx, id)
	switch {
	case err == nil:
		return order, nil
	case repositories.IsNotFound(err):
		return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	default:
		return domain.Order{}, fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
	}
}

// ListRecent returns the newest orders first for the dashboard.
func (s *orderService) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	orders, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
	}
	return orders, nil
}

// Stats aggregates the dashboard headline numbers.
func (s *orderService) Stats(ctx context.Context) (domain.StoreStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return domain.StoreStats{}, fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
	}
	return stats, nil
}

// newOrderID builds the human-facing order number: prefix, date, and a
// zero-padded three digit random suffix, for example SIA20250623042.
func (s *orderService) newOrderID(placedAt time.Time) string {
	return fmt.Sprintf("%s%04d%02d%02d%03d",
		s.prefix, placedAt.Year(), int(placedAt.Month()), placedAt.Day(), s.randInt(1000))
}
