package repositories

import (
	"context"
	"time"

	"github.com/siacollections/storefront/internal/domain"
)

// RepositoryError wraps low-level persistence failures with the categorisation
// used by the service layer.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// KeyValueStore is the synchronous durable slot used for cart persistence and
// the logged-in-admin session marker. Implementations must survive process
// restarts; Get reports a missing key via ok=false, not an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// CartRepository persists the full cart state under a fixed per-cart slot.
// Load returns a not-found categorised error when no cart was ever saved; an
// unparseable stored value is reported through ErrCartRecordCorrupt so callers
// can discard it and start empty.
type CartRepository interface {
	Load(ctx context.Context, cartID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) error
}

// ProductRepository reads the product catalog from the hosted backend.
type ProductRepository interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Category     string
	FeaturedOnly bool
	Limit        int
}

// OrderRepository persists immutable order records.
type OrderRepository interface {
	// Create fails with a conflict categorised error when the order id is
	// already taken, so callers can regenerate the random suffix.
	Create(ctx context.Context, order domain.Order) error
	Get(ctx context.Context, orderID string) (domain.Order, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Order, error)
	Stats(ctx context.Context) (domain.StoreStats, error)
}

// AdminSessionRepository stores opaque admin session markers in the durable
// key-value slot.
type AdminSessionRepository interface {
	Put(ctx context.Context, token string, identity domain.AdminIdentity, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (domain.AdminIdentity, bool, error)
	Remove(ctx context.Context, token string) error
}

// IsNotFound reports whether err carries not-found repository semantics.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return asRepositoryError(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether err carries conflict repository semantics.
func IsConflict(err error) bool {
	var repoErr RepositoryError
	return asRepositoryError(err, &repoErr) && repoErr.IsConflict()
}

// IsUnavailable reports whether err carries transient-outage semantics.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return asRepositoryError(err, &repoErr) && repoErr.IsUnavailable()
}
