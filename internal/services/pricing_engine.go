package services

import (
	"strings"

	"github.com/siacollections/storefront/internal/domain"
	"github.com/siacollections/storefront/internal/platform/config"
)

// PricingEngine derives the money breakdown for a cart plus the destination
// and payment method chosen at checkout. All arithmetic is on whole taka.
type PricingEngine struct {
	metroCity          string
	metroShippingFee   int64
	outsideShippingFee int64
	codRatePercent     int64
}

// NewPricingEngine builds a PricingEngine from store configuration.
func NewPricingEngine(cfg config.StoreConfig) *PricingEngine {
	return &PricingEngine{
		metroCity:          strings.ToLower(strings.TrimSpace(cfg.MetroCity)),
		metroShippingFee:   cfg.MetroShippingFee,
		outsideShippingFee: cfg.OutsideShippingFee,
		codRatePercent:     cfg.CODRatePercent,
	}
}

// EffectivePrice returns the price a line item is charged at: the sale price
// when one is set and positive, otherwise the regular price.
func EffectivePrice(product domain.Product) int64 {
	if product.OnSale() {
		return *product.SalePrice
	}
	return product.Price
}

// ShippingCost returns the flat delivery fee for the destination city. Empty
// and unrecognised cities fall to the outside-metro rate, matching how the
// courier actually bills.
func (e *PricingEngine) ShippingCost(city string) int64 {
	if strings.ToLower(strings.TrimSpace(city)) == e.metroCity {
		return e.metroShippingFee
	}
	return e.outsideShippingFee
}

// CODSurcharge returns the cash-handling fee collected on cash-on-delivery
// orders shipped outside the metro area. The percentage is applied to the
// item subtotal only and rounded half up to the nearest taka. Non-cod methods
// and metro destinations carry no surcharge.
func (e *PricingEngine) CODSurcharge(subtotal int64, city string, method domain.PaymentMethod) int64 {
	if method != domain.PaymentMethodCOD {
		return 0
	}
	if strings.ToLower(strings.TrimSpace(city)) == e.metroCity {
		return 0
	}
	if subtotal <= 0 || e.codRatePercent <= 0 {
		return 0
	}
	return (subtotal*e.codRatePercent + 50) / 100
}

// Summarize recomputes the full order summary from the cart and the current
// checkout selections. Callers never cache the result; every read derives it
// fresh so edits to city or payment method can not leave a stale total.
func (e *PricingEngine) Summarize(cart domain.Cart, city string, method domain.PaymentMethod) domain.OrderSummary {
	subtotal := cart.Subtotal()
	shipping := e.ShippingCost(city)
	cod := e.CODSurcharge(subtotal, city, method)
	return domain.OrderSummary{
		Subtotal:  subtotal,
		Shipping:  shipping,
		CODCharge: cod,
		Total:     subtotal + shipping + cod,
	}
}
