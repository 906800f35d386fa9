package model

import "time"

// User is the locally cached mirror of the signed-in account, keyed by NIC
// (national identity card number). The engine only stores it for offline
// display; authentication is owned by the remote service.
type User struct {
	NIC       string    `json:"nic" bson:"_id" validate:"required"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" bson:"email" validate:"omitempty,email"`
	Role      string    `json:"role" bson:"role"`
	IsActive  bool      `json:"isActive" bson:"is_active"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}
