package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/siacollections/storefront/internal/domain"
	pfirestore "github.com/siacollections/storefront/internal/platform/firestore"
	"github.com/siacollections/storefront/internal/repositories"
)

const (
	orderCollection   = "orders"
	defaultOrderLimit = 20
	maxOrderLimit     = 100
)

// OrderRepository persists immutable order records in Firestore. The document
// id is the human-facing order number, so duplicate numbers surface as create
// conflicts and the caller can regenerate the random suffix.
type OrderRepository struct {
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository: firestore provider is required")
	}
	return &OrderRepository{provider: provider}, nil
}

type orderDocument struct {
	Customer      orderCustomer   `firestore:"customer"`
	Address       orderAddress    `firestore:"address"`
	PaymentMethod string          `firestore:"paymentMethod"`
	Items         []orderLineItem `firestore:"items"`
	Notes         string          `firestore:"notes,omitempty"`
	Summary       orderSummary    `firestore:"summary"`
	Status        string          `firestore:"status"`
	PlacedAt      time.Time       `firestore:"placedAt"`
}

type orderCustomer struct {
	FirstName string `firestore:"firstName"`
	LastName  string `firestore:"lastName"`
	Email     string `firestore:"email"`
	Phone     string `firestore:"phone"`
}

type orderAddress struct {
	Address    string `firestore:"address"`
	City       string `firestore:"city"`
	PostalCode string `firestore:"postalCode,omitempty"`
}

type orderLineItem struct {
	ProductID string `firestore:"productId"`
	Name      string `firestore:"name"`
	UnitPrice int64  `firestore:"price"`
	ListPrice int64  `firestore:"originalPrice"`
	ImageURL  string `firestore:"image,omitempty"`
	Brand     string `firestore:"brand,omitempty"`
	SKU       string `firestore:"sku,omitempty"`
	Quantity  int    `firestore:"quantity"`
}

type orderSummary struct {
	Subtotal  int64 `firestore:"subtotal"`
	Shipping  int64 `firestore:"shipping"`
	CODCharge int64 `firestore:"codCharge"`
	Total     int64 `firestore:"total"`
}

// Create writes the order document, failing with a conflict categorised error
// when the order number is already taken.
func (r *OrderRepository) Create(ctx context.Context, order domain.Order) error {
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return errors.New("order repository: order id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return repositories.NewUnavailable("order repository: create", err)
	}

	if _, err := client.Collection(orderCollection).Doc(id).Create(ctx, encodeOrder(order)); err != nil {
		return pfirestore.WrapError("order repository: create", err)
	}
	return nil
}

// Get loads one order by its order number.
func (r *OrderRepository) Get(ctx context.Context, orderID string) (domain.Order, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, repositories.NewUnavailable("order repository: get", err)
	}

	snap, err := client.Collection(orderCollection).Doc(id).Get(ctx)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("order repository: get", err)
	}
	return decodeOrder(snap)
}

// ListRecent returns the newest orders first.
func (r *OrderRepository) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, repositories.NewUnavailable("order repository: list", err)
	}

	if limit <= 0 {
		limit = defaultOrderLimit
	}
	if limit > maxOrderLimit {
		limit = maxOrderLimit
	}

	iter := client.Collection(orderCollection).
		OrderBy("placedAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var orders []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("order repository: list", err)
		}
		order, err := decodeOrder(snap)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// Stats walks the order collection and aggregates the dashboard headline
// numbers. Only the summary field is fetched per document.
func (r *OrderRepository) Stats(ctx context.Context) (domain.StoreStats, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.StoreStats{}, repositories.NewUnavailable("order repository: stats", err)
	}

	iter := client.Collection(orderCollection).Select("summary").Documents(ctx)
	defer iter.Stop()

	var stats domain.StoreStats
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.StoreStats{}, pfirestore.WrapError("order repository: stats", err)
		}
		var doc struct {
			Summary orderSummary `firestore:"summary"`
		}
		if err := snap.DataTo(&doc); err != nil {
			return domain.StoreStats{}, pfirestore.WrapError("order repository: stats decode", err)
		}
		stats.TotalOrders++
		stats.TotalRevenue += doc.Summary.Total
	}
	return stats, nil
}

func encodeOrder(order domain.Order) orderDocument {
	doc := orderDocument{
		Customer: orderCustomer{
			FirstName: order.Customer.FirstName,
			LastName:  order.Customer.LastName,
			Email:     order.Customer.Email,
			Phone:     order.Customer.Phone,
		},
		Address: orderAddress{
			Address:    order.Address.Address,
			City:       order.Address.City,
			PostalCode: order.Address.PostalCode,
		},
		PaymentMethod: string(order.PaymentMethod),
		Notes:         order.Notes,
		Summary: orderSummary{
			Subtotal:  order.Summary.Subtotal,
			Shipping:  order.Summary.Shipping,
			CODCharge: order.Summary.CODCharge,
			Total:     order.Summary.Total,
		},
		Status:   string(order.Status),
		PlacedAt: order.PlacedAt,
	}
	for _, item := range order.Items {
		doc.Items = append(doc.Items, orderLineItem{
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
	return doc
}

func decodeOrder(snap *firestore.DocumentSnapshot) (domain.Order, error) {
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Order{}, pfirestore.WrapError("order repository: decode", err)
	}

	order := domain.Order{
		ID: snap.Ref.ID,
		Customer: domain.CustomerInfo{
			FirstName: doc.Customer.FirstName,
			LastName:  doc.Customer.LastName,
			Email:     doc.Customer.Email,
			Phone:     doc.Customer.Phone,
		},
		Address: domain.ShippingAddress{
			Address:    doc.Address.Address,
			City:       doc.Address.City,
			PostalCode: doc.Address.PostalCode,
		},
		PaymentMethod: domain.PaymentMethod(doc.PaymentMethod),
		Notes:         doc.Notes,
		Summary: domain.OrderSummary{
			Subtotal:  doc.Summary.Subtotal,
			Shipping:  doc.Summary.Shipping,
			CODCharge: doc.Summary.CODCharge,
			Total:     doc.Summary.Total,
		},
		Status:   domain.OrderStatus(doc.Status),
		PlacedAt: doc.PlacedAt,
	}
	for _, item := range doc.Items {
		order.Items = append(order.Items, domain.CartLineItem{
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
	return order, nil
}
