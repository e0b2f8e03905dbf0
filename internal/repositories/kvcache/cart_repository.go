package kvcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/siacollections/storefront/internal/domain"
	"github.com/siacollections/storefront/internal/repositories"
)

const cartKeyPrefix = "cart:"

// CartRepository serializes the full cart state into the durable key-value slot
// after every mutation and rehydrates it on demand.
type CartRepository struct {
	kv repositories.KeyValueStore
}

// NewCartRepository constructs a CartRepository over the given key-value store.
func NewCartRepository(kv repositories.KeyValueStore) (*CartRepository, error) {
	if kv == nil {
		return nil, errors.New("cart repository: key-value store is required")
	}
	return &CartRepository{kv: kv}, nil
}

type cartRecord struct {
	ID        string           `json:"id"`
	Items     []cartItemRecord `json:"items"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type cartItemRecord struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"price"`
	ListPrice int64  `json:"originalPrice"`
	ImageURL  string `json:"image,omitempty"`
	Brand     string `json:"brand,omitempty"`
	SKU       string `json:"sku,omitempty"`
	Quantity  int    `json:"quantity"`
}

// Load reads and decodes the cart slot. A missing slot yields a not-found
// categorised error; an undecodable slot yields ErrCartRecordCorrupt.
func (r *CartRepository) Load(ctx context.Context, cartID string) (domain.Cart, error) {
	id := strings.TrimSpace(cartID)
	if id == "" {
		return domain.Cart{}, errors.New("cart repository: cart id is required")
	}

	raw, ok, err := r.kv.Get(ctx, cartKeyPrefix+id)
	if err != nil {
		return domain.Cart{}, repositories.NewUnavailable("cart repository: load", err)
	}
	if !ok {
		return domain.Cart{}, repositories.NewNotFound("cart repository: load", fmt.Errorf("no saved cart for %s", id))
	}

	var record cartRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return domain.Cart{}, fmt.Errorf("%w: %s", repositories.ErrCartRecordCorrupt, err)
	}

	cart := domain.Cart{
		ID:        id,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
		Items:     make([]domain.CartLineItem, 0, len(record.Items)),
	}
	for _, item := range record.Items {
		cart.Items = append(cart.Items, domain.CartLineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			ListPrice: item.ListPrice,
			ImageURL:  item.ImageURL,
			Brand:     item.Brand,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
		})
	}
	return cart, nil
}

// Save serializes the whole cart under its fixed slot. An empty cart is still
// written so a cleared cart stays cleared across restarts.
func (r *CartRepository) Save(ctx context.Context, cart domain.Cart) error {
	id := strings.TrimSpace(cart.ID)
	if id == "" {
		return errors.New("cart repository: cart id is required")
	}

	record := cartRecord{
		ID:        id,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
		Items:     make([]cartItemRecord, 0, len(cart.Items)),
	}
	for _, item := range cart.Items {
		record.Items = append(record.Items, cartItemRecord{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			ListPrice: item.ListPrice,
			ImageURL:  item.ImageURL,
			Brand:     item.Brand,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
		})
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("cart repository: encode cart %s: %w", id, err)
	}
	if err := r.kv.Set(ctx, cartKeyPrefix+id, string(payload), 0); err != nil {
		return repositories.NewUnavailable("cart repository: save", err)
	}
	return nil
}
