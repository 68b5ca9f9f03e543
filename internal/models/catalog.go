// internal/models/catalog.go
package models

import "time"

// Business is a row of the internal business directory.
type Business struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Category       string    `json:"category" db:"category"`
	Address        string    `json:"address,omitempty" db:"address"`
	Phone          string    `json:"phone,omitempty" db:"phone"`
	WhatsApp       string    `json:"whatsapp,omitempty" db:"whatsapp"`
	Rating         *float64  `json:"rating,omitempty" db:"rating"`
	Latitude       *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude      *float64  `json:"longitude,omitempty" db:"longitude"`
	DistanceMeters *float64  `json:"distanceMeters,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// Product is a catalog product offered by a supplier.
type Product struct {
	ID           int64   `json:"id" db:"id"`
	Name         string  `json:"name" db:"name"`
	Category     string  `json:"category" db:"category"`
	Price        float64 `json:"price" db:"price"`
	Unit         string  `json:"unit,omitempty" db:"unit"`
	SupplierName string  `json:"supplierName,omitempty" db:"supplier_name"`
}

// SupplierPrice is one supplier's price for a product.
type SupplierPrice struct {
	SupplierName string   `json:"supplierName"`
	Phone        string   `json:"phone,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	ProductName  string   `json:"productName"`
	Price        float64  `json:"price"`
}

// CategoryCount is the number of active businesses in a category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}
