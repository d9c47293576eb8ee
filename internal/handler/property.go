package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"homelet/internal/domain"
	"homelet/internal/repository"
)

// PropertyHandler handles read-only HTTP requests for listings.
type PropertyHandler struct {
	listingRepo repository.ListingRepository
}

// NewPropertyHandler creates a new PropertyHandler.
func NewPropertyHandler(listingRepo repository.ListingRepository) *PropertyHandler {
	return &PropertyHandler{listingRepo: listingRepo}
}

// PropertyResponse is the HTTP representation of a property.
type PropertyResponse struct {
	ID           string    `json:"id"`
	LandlordID   string    `json:"landlord_id"`
	Title        string    `json:"title"`
	PropertyType string    `json:"property_type"`
	Location     string    `json:"location"`
	Price        string    `json:"price"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoomResponse is the HTTP representation of a room.
type RoomResponse struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	RoomNumber string `json:"room_number"`
	RoomType   string `json:"room_type"`
	Price      string `json:"price"`
	Status     string `json:"status"`
}

func toPropertyResponse(p *domain.Property) PropertyResponse {
	return PropertyResponse{
		ID:           p.ID,
		LandlordID:   p.LandlordID,
		Title:        p.Title,
		PropertyType: p.PropertyType,
		Location:     p.Location,
		Price:        p.Price.StringFixed(2),
		Status:       string(p.Status),
		CreatedAt:    p.CreatedAt,
	}
}

// List handles GET /v1/properties
func (h *PropertyHandler) List(c *gin.Context) {
	properties, err := h.listingRepo.ListProperties(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]PropertyResponse, 0, len(properties))
	for _, p := range properties {
		response = append(response, toPropertyResponse(p))
	}

	respondJSON(c, http.StatusOK, response)
}

// Get handles GET /v1/properties/:id
func (h *PropertyHandler) Get(c *gin.Context) {
	property, err := h.listingRepo.GetPropertyByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPropertyResponse(property))
}

// ListRooms handles GET /v1/properties/:id/rooms
func (h *PropertyHandler) ListRooms(c *gin.Context) {
	// 404 for an unknown property rather than an empty room list.
	property, err := h.listingRepo.GetPropertyByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	rooms, err := h.listingRepo.ListRoomsByProperty(c.Request.Context(), property.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		response = append(response, RoomResponse{
			ID:         room.ID,
			PropertyID: room.PropertyID,
			RoomNumber: room.RoomNumber,
			RoomType:   room.RoomType,
			Price:      room.Price.StringFixed(2),
			Status:     room.Status,
		})
	}

	respondJSON(c, http.StatusOK, response)
}
