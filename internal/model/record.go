package model

import "time"

// Record is one stored catalogue entry in a twin collection.
type Record struct {
	ID          string    `json:"_id"`
	Collection  string    `json:"collection"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	ImageData   []byte    `json:"-"`
	ImageType   string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RecordInput is a validated create or update request. A nil image on update
// keeps the stored one.
type RecordInput struct {
	Name        string
	Price       float64
	Description string
	ImageData   []byte
	ImageType   string
}

// CollectionStats summarizes one collection.
type CollectionStats struct {
	Collection string  `json:"collection"`
	Count      int64   `json:"count"`
	Revenue    float64 `json:"revenue"`
}
