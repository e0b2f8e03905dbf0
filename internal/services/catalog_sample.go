package services

import (
	"strings"

	"github.com/siacollections/storefront/internal/domain"
	"github.com/siacollections/storefront/internal/repositories"
)

func salePrice(v int64) *int64 { return &v }

// sampleProducts is the built-in catalog served when the product backend is
// unreachable. It mirrors the seed inventory of the shop.
var sampleProducts = []domain.Product{
	{
		ID: "sample-mk001", Name: "Professional Makeup Kit Set",
		Price: 2500, SalePrice: salePrice(2000),
		Brand: "SIA Beauty", SKU: "MK001", Category: "beauty",
		StockQuantity: 25, Featured: true, Active: true,
	},
	{
		ID: "sample-sk001", Name: "Vitamin C Skin Care Set",
		Price: 1800, SalePrice: salePrice(1500),
		Brand: "SIA Skincare", SKU: "SK001", Category: "skincare",
		StockQuantity: 30, Featured: true, Active: true,
	},
	{
		ID: "sample-hc001", Name: "Luxury Scented Candle - Velvet Rose & Oud",
		Price: 1200, SalePrice: salePrice(1000),
		Brand: "Home Lights", SKU: "HC001", Category: "home",
		StockQuantity: 40, Featured: true, Active: true,
	},
	{
		ID: "sample-sh001", Name: "Women Block High Heels Ankle Boots",
		Price: 3500, SalePrice: salePrice(3000),
		Brand: "SIA Fashion", SKU: "SH001", Category: "footwear",
		StockQuantity: 12, Featured: true, Active: true,
	},
	{
		ID: "sample-mk002", Name: "All-in-One Makeup Holiday Gift Set",
		Price: 3200, SalePrice: salePrice(2800),
		Brand: "SIA Beauty", SKU: "MK002", Category: "beauty",
		StockQuantity: 15, Featured: true, Active: true,
	},
	{
		ID: "sample-hb001", Name: "Designer Embroidery Jacquard Handbag",
		Price: 4200, SalePrice: salePrice(3800),
		Brand: "SIA Luxury", SKU: "HB001", Category: "bags",
		StockQuantity: 8, Featured: true, Active: true,
	},
	{
		ID: "sample-sk002", Name: "Perfecting 4 Step Skincare Kit",
		Price: 2200,
		Brand: "SIA Skincare", SKU: "SK002", Category: "skincare",
		StockQuantity: 20, Featured: true, Active: true,
	},
	{
		ID: "sample-hc002", Name: "Cashmere & Vanilla Luxury Candle",
		Price: 1400,
		Brand: "Applewood", SKU: "HC002", Category: "home",
		StockQuantity: 35, Featured: true, Active: true,
	},
}

func filterSampleProducts(filter repositories.ProductFilter) []domain.Product {
	category := strings.ToLower(strings.TrimSpace(filter.Category))
	var out []domain.Product
	for _, p := range sampleProducts {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if filter.FeaturedOnly && !p.Featured {
			continue
		}
		out = append(out, p)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

func findSampleProduct(productID string) (domain.Product, bool) {
	for _, p := range sampleProducts {
		if strings.EqualFold(p.ID, productID) || strings.EqualFold(p.SKU, productID) {
			return p, true
		}
	}
	return domain.Product{}, false
}
