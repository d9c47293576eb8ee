package repository

import (
	"context"

	"homelet/internal/domain"
)

// ListingRepository defines read operations for properties and rooms.
type ListingRepository interface {
	// GetPropertyByID retrieves a property by ID.
	GetPropertyByID(ctx context.Context, id string) (*domain.Property, error)

	// GetRoomByID retrieves a room by ID.
	GetRoomByID(ctx context.Context, id string) (*domain.Room, error)

	// ListProperties retrieves all properties, newest first.
	ListProperties(ctx context.Context) ([]*domain.Property, error)

	// ListRoomsByProperty retrieves the rooms of a property.
	ListRoomsByProperty(ctx context.Context, propertyID string) ([]*domain.Room, error)
}
