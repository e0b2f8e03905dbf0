package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/siacollections/storefront/internal/domain"
	"github.com/siacollections/storefront/internal/platform/metrics"
	"github.com/siacollections/storefront/internal/repositories"
)

var (
	// ErrCatalogInvalidInput indicates the caller supplied invalid input.
	ErrCatalogInvalidInput = errors.New("catalog service: invalid input")
	// ErrCatalogProductNotFound indicates no product exists for the id.
	ErrCatalogProductNotFound = errors.New("catalog service: product not found")
	// ErrCatalogUnavailable indicates the catalog backend cannot be reached and
	// no sample fallback applies.
	ErrCatalogUnavailable = errors.New("catalog service: unavailable")
)

// CatalogServiceDeps wires the product repository for catalog reads.
type CatalogServiceDeps struct {
	Repository repositories.ProductRepository
	Logger     func(context.Context, string, map[string]any)
	Metrics    *metrics.Metrics
}

type catalogService struct {
	repo    repositories.ProductRepository
	logger  func(context.Context, string, map[string]any)
	metrics *metrics.Metrics
}

// NewCatalogService constructs a CatalogService enforcing dependency validation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Repository == nil {
		return nil, errors.New("catalog service: repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{
		repo:    deps.Repository,
		logger:  logger,
		metrics: deps.Metrics,
	}, nil
}

// ListProducts returns catalog entries matching the query. When the backend is
// unreachable the built-in sample set is served instead, so the storefront
// never renders an empty shelf during an outage.
func (s *catalogService) ListProducts(ctx context.Context, query ProductQuery) (ProductListing, error) {
	filter := repositories.ProductFilter{
		Category:     strings.TrimSpace(query.Category),
		FeaturedOnly: query.FeaturedOnly,
		Limit:        query.Limit,
	}

	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		if repositories.IsUnavailable(err) {
			s.metrics.IncrementCatalogFallback()
			s.logger(ctx, "catalog.sample_fallback", map[string]any{"error": err.Error()})
			return ProductListing{
				Products:       filterSampleProducts(filter),
				FromSampleData: true,
			}, nil
		}
		return ProductListing{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return ProductListing{Products: products}, nil
}

// GetProduct loads one product by id, consulting the sample set when the
// backend is down.
func (s *catalogService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	product, err := s.repo.GetProduct(ctx, id)
	switch {
	case err == nil:
		return product, nil
	case repositories.IsNotFound(err):
		return domain.Product{}, fmt.Errorf("%w: %s", ErrCatalogProductNotFound, id)
	case repositories.IsUnavailable(err):
		if sample, ok := findSampleProduct(id); ok {
			s.metrics.IncrementCatalogFallback()
			s.logger(ctx, "catalog.sample_fallback", map[string]any{"product_id": id})
			return sample, nil
		}
		return domain.Product{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	default:
		return domain.Product{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
}
