package postgres

import (
	"context"
	"database/sql"
	"errors"

	"homelet/internal/domain"
	"homelet/internal/repository"
)

// ListingRepository implements repository.ListingRepository using PostgreSQL.
type ListingRepository struct {
	db *sql.DB
}

// NewListingRepository creates a new ListingRepository.
func NewListingRepository(db *sql.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// GetPropertyByID retrieves a property by ID.
func (r *ListingRepository) GetPropertyByID(ctx context.Context, id string) (*domain.Property, error) {
	query := `
		SELECT id, landlord_id, title, property_type, location, price, status, created_at
		FROM properties WHERE id = $1
	`

	var p domain.Property
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.LandlordID, &p.Title, &p.PropertyType, &p.Location, &p.Price, &p.Status, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetRoomByID retrieves a room by ID.
func (r *ListingRepository) GetRoomByID(ctx context.Context, id string) (*domain.Room, error) {
	query := `
		SELECT id, property_id, room_number, room_type, price, status, created_at
		FROM rooms WHERE id = $1
	`

	var room domain.Room
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&room.ID, &room.PropertyID, &room.RoomNumber, &room.RoomType, &room.Price, &room.Status, &room.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ListProperties retrieves all properties, newest first.
func (r *ListingRepository) ListProperties(ctx context.Context) ([]*domain.Property, error) {
	query := `
		SELECT id, landlord_id, title, property_type, location, price, status, created_at
		FROM properties ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []*domain.Property
	for rows.Next() {
		var p domain.Property
		if err := rows.Scan(&p.ID, &p.LandlordID, &p.Title, &p.PropertyType, &p.Location, &p.Price, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		properties = append(properties, &p)
	}
	return properties, rows.Err()
}

// ListRoomsByProperty retrieves the rooms of a property ordered by number.
func (r *ListingRepository) ListRoomsByProperty(ctx context.Context, propertyID string) ([]*domain.Room, error) {
	query := `
		SELECT id, property_id, room_number, room_type, price, status, created_at
		FROM rooms WHERE property_id = $1 ORDER BY room_number ASC
	`

	rows, err := r.db.QueryContext(ctx, query, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*domain.Room
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.ID, &room.PropertyID, &room.RoomNumber, &room.RoomType, &room.Price, &room.Status, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, &room)
	}
	return rooms, rows.Err()
}
