package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/siacollections/storefront/internal/domain"
	"github.com/siacollections/storefront/internal/platform/metrics"
	"github.com/siacollections/storefront/internal/repositories"
)

var (
	// ErrCartInvalidInput indicates the caller supplied invalid input.
	ErrCartInvalidInput = errors.New("cart service: invalid input")
	// ErrCartUnavailable indicates the cart backend cannot fulfil the request.
	ErrCartUnavailable = errors.New("cart service: unavailable")
	// ErrCartProductNotFound indicates the product to add does not exist.
	ErrCartProductNotFound = errors.New("cart service: product not found")
)

const maxLineQuantity = 99

// CartServiceDeps wires the persistence, catalog and pricing dependencies for
// cart operations.
type CartServiceDeps struct {
	Repository repositories.CartRepository
	Catalog    CatalogService
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
	Metrics    *metrics.Metrics
}

type cartService struct {
	repo    repositories.CartRepository
	catalog CatalogService
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
	metrics *metrics.Metrics
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errors.New("cart service: repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("cart service: catalog is required")
	}
	if deps.Clock == nil {
		return nil, errors.New("cart service: clock is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &cartService{
		repo:    deps.Repository,
		catalog: deps.Catalog,
		now:     func() time.Time { return deps.Clock().UTC() },
		logger:  logger,
		metrics: deps.Metrics,
	}, nil
}

// Get returns the current cart. A cart that was never saved, or whose stored
// record can no longer be decoded, comes back empty rather than failing the
// request.
func (s *cartService) Get(ctx context.Context, cartID string) (CartView, error) {
	cart, err := s.load(ctx, cartID)
	if err != nil {
		return CartView{}, err
	}
	return viewOf(cart), nil
}

// AddItem appends a product to the cart, or increments the existing line when
// the product is already present. The unit price is copied from the catalog at
// this moment and never changes afterwards.
func (s *cartService) AddItem(ctx context.Context, cmd AddItemCommand) (CartView, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return CartView{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	quantity := cmd.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	if quantity > maxLineQuantity {
		return CartView{}, fmt.Errorf("%w: quantity exceeds %d", ErrCartInvalidInput, maxLineQuantity)
	}

	cart, err := s.load(ctx, cmd.CartID)
	if err != nil {
		return CartView{}, err
	}

	if idx := cart.FindItem(productID); idx >= 0 {
		next := cart.Items[idx].Quantity + quantity
		if next > maxLineQuantity {
			next = maxLineQuantity
		}
		cart.Items[idx].Quantity = next
	} else {
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, ErrCatalogProductNotFound) {
				return CartView{}, fmt.Errorf("%w: %s", ErrCartProductNotFound, productID)
			}
			return CartView{}, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
		}
		cart.Items = append(cart.Items, domain.CartLineItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: EffectivePrice(product),
			ListPrice: product.Price,
			ImageURL:  product.ImageURL,
			Brand:     product.Brand,
			SKU:       product.SKU,
			Quantity:  quantity,
		})
	}

	if err := s.save(ctx, &cart); err != nil {
		return CartView{}, err
	}
	s.metrics.IncrementCartMutation("add")
	s.logger(ctx, "cart.item_added", map[string]any{
		"cart_id":    cart.ID,
		"product_id": productID,
		"item_count": cart.ItemCount(),
	})
	return viewOf(cart), nil
}

// RemoveItem drops the line item for the given product. Removing a product
// that is not in the cart is a no-op.
func (s *cartService) RemoveItem(ctx context.Context, cartID, productID string) (CartView, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return CartView{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}

	cart, err := s.load(ctx, cartID)
	if err != nil {
		return CartView{}, err
	}

	idx := cart.FindItem(id)
	if idx < 0 {
		return viewOf(cart), nil
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

	if err := s.save(ctx, &cart); err != nil {
		return CartView{}, err
	}
	s.metrics.IncrementCartMutation("remove")
	return viewOf(cart), nil
}

// SetQuantity replaces the quantity of an existing line item. A target of zero
// or less removes the line; an absent product is a no-op.
func (s *cartService) SetQuantity(ctx context.Context, cmd SetQuantityCommand) (CartView, error) {
	id := strings.TrimSpace(cmd.ProductID)
	if id == "" {
		return CartView{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if cmd.Quantity > maxLineQuantity {
		return CartView{}, fmt.Errorf("%w: quantity exceeds %d", ErrCartInvalidInput, maxLineQuantity)
	}

	cart, err := s.load(ctx, cmd.CartID)
	if err != nil {
		return CartView{}, err
	}

	idx := cart.FindItem(id)
	if idx < 0 {
		return viewOf(cart), nil
	}
	if cmd.Quantity <= 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	} else {
		cart.Items[idx].Quantity = cmd.Quantity
	}

	if err := s.save(ctx, &cart); err != nil {
		return CartView{}, err
	}
	s.metrics.IncrementCartMutation("set_quantity")
	return viewOf(cart), nil
}

// Clear removes every line item but keeps the cart record, so the cleared
// state survives restarts.
func (s *cartService) Clear(ctx context.Context, cartID string) (CartView, error) {
	cart, err := s.load(ctx, cartID)
	if err != nil {
		return CartView{}, err
	}

	cart.Items = nil
	if err := s.save(ctx, &cart); err != nil {
		return CartView{}, err
	}
	s.metrics.IncrementCartMutation("clear")
	return viewOf(cart), nil
}

func (s *cartService) load(ctx context.Context, cartID string) (domain.Cart, error) {
	id := strings.TrimSpace(cartID)
	if id == "" {
		return domain.Cart{}, fmt.Errorf("%w: cart id is required", ErrCartInvalidInput)
	}

	cart, err := s.repo.Load(ctx, id)
	switch {
	case err == nil:
		return cart, nil
	case repositories.IsNotFound(err):
		now := s.now()
		return domain.Cart{ID: id, CreatedAt: now, UpdatedAt: now}, nil
	case errors.Is(err, repositories.ErrCartRecordCorrupt):
		s.logger(ctx, "cart.record_discarded", map[string]any{"cart_id": id, "error": err.Error()})
		now := s.now()
		return domain.Cart{ID: id, CreatedAt: now, UpdatedAt: now}, nil
	default:
		return domain.Cart{}, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}
}

func (s *cartService) save(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = s.now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = cart.UpdatedAt
	}
	if err := s.repo.Save(ctx, *cart); err != nil {
		return fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}
	return nil
}

func viewOf(cart domain.Cart) CartView {
	return CartView{
		Cart:      cart,
		ItemCount: cart.ItemCount(),
		Subtotal:  cart.Subtotal(),
	}
}
