package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/siacollections/storefront/internal/domain"
	pfirestore "github.com/siacollections/storefront/internal/platform/firestore"
	"github.com/siacollections/storefront/internal/repositories"
)

const (
	productCollection   = "products"
	defaultProductLimit = 50
	maxProductLimit     = 200
)

// ProductRepository reads catalog documents from Firestore.
type ProductRepository struct {
	provider *pfirestore.Provider
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository: firestore provider is required")
	}
	return &ProductRepository{provider: provider}, nil
}

type productDocument struct {
	Name          string `firestore:"name"`
	Price         int64  `firestore:"price"`
	SalePrice     *int64 `firestore:"salePrice,omitempty"`
	ImageURL      string `firestore:"imageUrl,omitempty"`
	Brand         string `firestore:"brand,omitempty"`
	SKU           string `firestore:"sku,omitempty"`
	Category      string `firestore:"category,omitempty"`
	StockQuantity int    `firestore:"stockQuantity"`
	Featured      bool   `firestore:"isFeatured"`
	Active        bool   `firestore:"active"`
}

// ListProducts returns active catalog entries matching the filter.
func (r *ProductRepository) ListProducts(ctx context.Context, filter repositories.ProductFilter) ([]domain.Product, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, repositories.NewUnavailable("product repository: list", err)
	}

	query := client.Collection(productCollection).Query.Where("active", "==", true)
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category", "==", category)
	}
	if filter.FeaturedOnly {
		query = query.Where("isFeatured", "==", true)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultProductLimit
	}
	if limit > maxProductLimit {
		limit = maxProductLimit
	}
	query = query.Limit(limit)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var products []domain.Product
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("product repository: list", err)
		}
		product, err := decodeProduct(snap)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

// GetProduct loads a single catalog entry by document id.
func (r *ProductRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Product{}, repositories.NewUnavailable("product repository: get", err)
	}

	snap, err := client.Collection(productCollection).Doc(id).Get(ctx)
	if err != nil {
		return domain.Product{}, pfirestore.WrapError("product repository: get", err)
	}
	return decodeProduct(snap)
}

func decodeProduct(snap *firestore.DocumentSnapshot) (domain.Product, error) {
	var doc productDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Product{}, pfirestore.WrapError("product repository: decode", err)
	}
	return domain.Product{
		ID:            snap.Ref.ID,
		Name:          doc.Name,
		Price:         doc.Price,
		SalePrice:     doc.SalePrice,
		ImageURL:      doc.ImageURL,
		Brand:         doc.Brand,
		SKU:           doc.SKU,
		Category:      doc.Category,
		StockQuantity: doc.StockQuantity,
		Featured:      doc.Featured,
		Active:        doc.Active,
	}, nil
}
