package entity

import (
	"time"
)

const (
	ListingStatusActive   = "active"
	ListingStatusArchived = "archived"
)

type Listing struct {
	ID          string   `json:"id" firestore:"id"`
	OwnerID     string   `json:"owner_id" firestore:"ownerId"`
	Title       string   `json:"title" firestore:"title"`
	Description string   `json:"description" firestore:"description"`
	Price       float64  `json:"price" firestore:"price"`
	City        string   `json:"city" firestore:"city"`
	Address     string   `json:"address,omitempty" firestore:"address,omitempty"`
	Rooms       int      `json:"rooms" firestore:"rooms"`
	PhotoURLs   []string `json:"photo_urls,omitempty" firestore:"photoUrls,omitempty"`
	Status      string   `json:"status" firestore:"status"` // "active", "archived"

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}
