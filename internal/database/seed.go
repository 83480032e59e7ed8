package database

import (
	"github.com/shopspring/decimal"

	"go-shop-api/internal/model"
)

// SampleCatalog is the product set loaded by the seed command.
func SampleCatalog() []model.Product {
	item := func(name, description, price, category string, stock int) model.Product {
		return model.Product{
			Name:          name,
			Description:   description,
			Price:         decimal.RequireFromString(price),
			Category:      category,
			StockQuantity: stock,
		}
	}

	return []model.Product{
		item("Mechanical Keyboard", "Hot-swappable 75% keyboard with tactile switches", "89.99", "electronics", 40),
		item("Wireless Mouse", "Ergonomic 2.4GHz mouse", "29.99", "electronics", 120),
		item("USB-C Hub", "7-in-1 hub with HDMI and card reader", "39.99", "electronics", 75),
		item("27in Monitor", "1440p IPS panel, 144Hz", "279.00", "electronics", 15),
		item("Go Programming Book", "A practical guide to idiomatic Go", "44.50", "books", 60),
		item("Distributed Systems Notes", "Consensus, replication and failure", "52.00", "books", 25),
		item("Coffee Mug", "Ceramic, 350ml", "12.00", "home", 200),
		item("Desk Lamp", "Dimmable LED lamp with USB port", "34.95", "home", 50),
		item("Standing Desk Mat", "Anti-fatigue mat", "49.00", "home", 10),
		item("Hoodie", "Organic cotton hoodie", "59.00", "apparel", 80),
	}
}
