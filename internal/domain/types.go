package domain

import (
	"strings"
	"time"
)

// PaymentMethod identifies how the customer intends to pay for an order.
type PaymentMethod string

const (
	// PaymentMethodCard covers credit and debit card payments.
	PaymentMethodCard PaymentMethod = "card"
	// PaymentMethodBkash covers bKash mobile wallet payments.
	PaymentMethodBkash PaymentMethod = "bkash"
	// PaymentMethodCOD is cash on delivery, paid at receipt of goods.
	PaymentMethodCOD PaymentMethod = "cod"
)

// KnownPaymentMethods lists the payment methods accepted at checkout.
var KnownPaymentMethods = []PaymentMethod{PaymentMethodCard, PaymentMethodBkash, PaymentMethodCOD}

// NormalizePaymentMethod lower-cases and trims the raw value. Unknown values are
// returned as-is; pricing treats anything other than cod as surcharge-free.
func NormalizePaymentMethod(raw string) PaymentMethod {
	return PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
}

// Valid reports whether the method is one of the accepted values.
func (m PaymentMethod) Valid() bool {
	for _, known := range KnownPaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// Product is a catalog entry as served by the catalog backend. Prices are whole
// taka; the currency has no minor units.
type Product struct {
	ID            string
	Name          string
	Price         int64
	SalePrice     *int64
	ImageURL      string
	Brand         string
	SKU           string
	Category      string
	StockQuantity int
	Featured      bool
	Active        bool
}

// OnSale reports whether a positive sale price is set.
func (p Product) OnSale() bool {
	return p.SalePrice != nil && *p.SalePrice > 0
}

// CartLineItem is one product entry in the cart, copied from the catalog entry
// at the moment it was added. UnitPrice is the effective price charged; ListPrice
// keeps the original price for discount display.
type CartLineItem struct {
	ProductID string
	Name      string
	UnitPrice int64
	ListPrice int64
	ImageURL  string
	Brand     string
	SKU       string
	Quantity  int
}

// LineTotal returns UnitPrice multiplied by Quantity.
func (li CartLineItem) LineTotal() int64 {
	if li.Quantity <= 0 {
		return 0
	}
	return li.UnitPrice * int64(li.Quantity)
}

// Cart holds the ordered list of line items for one shopping session. Insertion
// order is preserved for display. The cart service owns all mutation.
type Cart struct {
	ID        string
	Items     []CartLineItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemCount sums the quantities of all line items (badge display).
func (c Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		if item.Quantity > 0 {
			count += item.Quantity
		}
	}
	return count
}

// Subtotal sums UnitPrice * Quantity over all line items.
func (c Cart) Subtotal() int64 {
	var subtotal int64
	for _, item := range c.Items {
		subtotal += item.LineTotal()
	}
	return subtotal
}

// FindItem returns the index of the line item with the given product id, or -1.
func (c Cart) FindItem(productID string) int {
	target := strings.TrimSpace(productID)
	if target == "" {
		return -1
	}
	for i, item := range c.Items {
		if strings.EqualFold(item.ProductID, target) {
			return i
		}
	}
	return -1
}

// OrderSummary is the derived money breakdown for the in-progress checkout.
// It is recomputed from the cart and form fields on every read and never stored,
// so edits to city or payment method mid-flow can not leave a stale total.
type OrderSummary struct {
	Subtotal  int64
	Shipping  int64
	CODCharge int64
	Total     int64
}

// CustomerInfo carries the contact fields collected in the first checkout step.
type CustomerInfo struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// ShippingAddress carries the destination fields collected in the second step.
type ShippingAddress struct {
	Address    string
	City       string
	PostalCode string
}

// Order is the immutable record produced by a successful checkout submission.
// Line items are snapshotted from the cart at submission time.
type Order struct {
	ID            string
	Customer      CustomerInfo
	Address       ShippingAddress
	PaymentMethod PaymentMethod
	Items         []CartLineItem
	Notes         string
	Summary       OrderSummary
	Status        OrderStatus
	PlacedAt      time.Time
}

// OrderStatus tracks fulfilment progress as shown on the admin dashboard.
type OrderStatus string

const (
	// OrderStatusProcessing is the initial status of a freshly placed order.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped means the order left the warehouse.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered means the courier confirmed delivery.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled means the order was cancelled before delivery.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// AdminIdentity is the authenticated admin principal for the dashboard.
type AdminIdentity struct {
	ID    string
	Email string
	Name  string
	Role  string
}

// StoreStats aggregates the headline numbers for the admin dashboard.
type StoreStats struct {
	TotalOrders   int64
	TotalRevenue  int64
	TotalProducts int64
}
