package domain

import "time"

// User represents a registered tenant or landlord.
type User struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}
