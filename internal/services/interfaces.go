package services

import (
	"context"

	"github.com/siacollections/storefront/internal/domain"
)

// CartService owns all cart mutation. Every operation loads the cart, applies
// the change, recomputes derived values, and persists the result before
// returning.
type CartService interface {
	Get(ctx context.Context, cartID string) (CartView, error)
	AddItem(ctx context.Context, cmd AddItemCommand) (CartView, error)
	RemoveItem(ctx context.Context, cartID, productID string) (CartView, error)
	SetQuantity(ctx context.Context, cmd SetQuantityCommand) (CartView, error)
	Clear(ctx context.Context, cartID string) (CartView, error)
}

// AddItemCommand adds a product to a cart. A non-positive Quantity defaults
// to one.
type AddItemCommand struct {
	CartID    string
	ProductID string
	Quantity  int
}

// SetQuantityCommand replaces the quantity of an existing line item. A value
// of zero or less removes the line.
type SetQuantityCommand struct {
	CartID    string
	ProductID string
	Quantity  int
}

// CartView is the cart plus its derived display values.
type CartView struct {
	Cart      domain.Cart
	ItemCount int
	Subtotal  int64
}

// CatalogService serves product listings and single-product lookups, falling
// back to the built-in sample catalog when the backend is unreachable.
type CatalogService interface {
	ListProducts(ctx context.Context, query ProductQuery) (ProductListing, error)
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

// ProductQuery narrows a catalog listing.
type ProductQuery struct {
	Category     string
	FeaturedOnly bool
	Limit        int
}

// ProductListing is a page of products plus a marker for sample-data fallback.
type ProductListing struct {
	Products       []domain.Product
	FromSampleData bool
}

// CheckoutService drives the multi-step checkout flow for a cart.
type CheckoutService interface {
	Get(ctx context.Context, cartID string) (CheckoutView, error)
	Continue(ctx context.Context, cartID string) (CheckoutView, error)
	Previous(ctx context.Context, cartID string) (CheckoutView, error)
	SetFields(ctx context.Context, cmd SetCheckoutFieldsCommand) (CheckoutView, error)
	Submit(ctx context.Context, cartID string) (CheckoutView, error)
}

// SetCheckoutFieldsCommand patches checkout form fields. Nil pointers leave
// the current value untouched.
type SetCheckoutFieldsCommand struct {
	CartID        string
	FirstName     *string
	LastName      *string
	Email         *string
	Phone         *string
	Address       *string
	City          *string
	PostalCode    *string
	PaymentMethod *string
	Notes         *string
}

// CheckoutView is the full checkout state returned to the caller after every
// operation, with the order summary recomputed from the live cart.
type CheckoutView struct {
	CartID        string
	Step          CheckoutStep
	Customer      domain.CustomerInfo
	Address       domain.ShippingAddress
	PaymentMethod domain.PaymentMethod
	Notes         string
	Summary       domain.OrderSummary
	ItemCount     int
	FieldErrors   map[string]string
	Order         *domain.Order
}

// OrderService creates and reads immutable order records.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Order, error)
	Stats(ctx context.Context) (domain.StoreStats, error)
}

// CreateOrderCommand carries everything needed to mint an order record.
type CreateOrderCommand struct {
	Customer      domain.CustomerInfo
	Address       domain.ShippingAddress
	PaymentMethod domain.PaymentMethod
	Items         []domain.CartLineItem
	Notes         string
	Summary       domain.OrderSummary
}

// AdminAuthService authenticates dashboard users and manages their sessions.
type AdminAuthService interface {
	SignIn(ctx context.Context, email, password string) (AdminSession, error)
	SignOut(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) (domain.AdminIdentity, error)
}

// AdminSession is the minted session token plus the identity it represents.
type AdminSession struct {
	Token    string
	Identity domain.AdminIdentity
}
