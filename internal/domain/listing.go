package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PropertyStatus represents the availability of a property.
type PropertyStatus string

const (
	PropertyAvailable   PropertyStatus = "available"
	PropertyRented      PropertyStatus = "rented"
	PropertyMaintenance PropertyStatus = "maintenance"
)

// Property is a rentable listing owned by a landlord.
type Property struct {
	ID           string
	LandlordID   string
	Title        string
	PropertyType string
	Location     string
	Price        decimal.Decimal
	Status       PropertyStatus
	CreatedAt    time.Time
}

// Room is a rentable unit inside a property.
type Room struct {
	ID         string
	PropertyID string
	RoomNumber string
	RoomType   string
	Price      decimal.Decimal
	Status     string
	CreatedAt  time.Time
}
