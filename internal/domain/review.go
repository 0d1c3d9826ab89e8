package domain

import (
	"context"
	"strings"
	"time"
)

// Review is a single user-submitted evaluation of a product. Reviews are immutable once stored.
type Review struct {
	ID        string    `json:"id" bson:"id" db:"id" validate:"required"`
	ProductID string    `json:"productId" bson:"productId" db:"product_id" validate:"required"`
	Website   string    `json:"website" bson:"website" db:"website" validate:"required"`
	Name      string    `json:"name" bson:"name" db:"name"`
	Rating    int       `json:"rating" bson:"rating" db:"rating" validate:"min=1,max=5"`
	Title     string    `json:"title" bson:"title" db:"title" validate:"required"`
	Content   string    `json:"content" bson:"content" db:"content" validate:"required"`
	Date      time.Time `json:"date" bson:"date" db:"date" validate:"required"`
}

// Partition returns the (productId, website) scope the review belongs to.
func (r *Review) Partition() Partition {
	return Partition{ProductID: r.ProductID, Website: r.Website}
}

// NormalizePartition trims the partition key so writes and reads address the same partition.
func (r *Review) NormalizePartition() {
	r.ProductID = strings.TrimSpace(r.ProductID)
	r.Website = strings.TrimSpace(r.Website)
}

// Partition scopes every read. A review is never visible outside its own partition.
type Partition struct {
	ProductID string
	Website   string
}

// NewPartition builds a partition key from raw input, trimming surrounding whitespace
func NewPartition(productID, website string) Partition {
	return Partition{
		ProductID: strings.TrimSpace(productID),
		Website:   strings.TrimSpace(website),
	}
}

// Valid reports whether both halves of the partition key are present.
func (p Partition) Valid() bool {
	return p.ProductID != "" && p.Website != ""
}

// ReviewStats is computed per request and never persisted.
type ReviewStats struct {
	TotalReviews  int     `json:"totalReviews"`
	AverageRating float64 `json:"averageRating"`
}

// RatingAggregate is the raw count and mean a store computes for a partition.
type RatingAggregate struct {
	Count   int
	Average float64
}

// ReviewRepository defines the interface for review data access
type ReviewRepository interface {
	// Create appends a review. Returns ErrAlreadyExists when the id is taken.
	Create(ctx context.Context, review *Review) error

	// Find returns the reviews of a partition matching the query, in the query's order
	Find(ctx context.Context, query ReviewQuery) ([]Review, error)

	// Aggregate computes count and average rating of a partition in one round trip
	Aggregate(ctx context.Context, partition Partition) (*RatingAggregate, error)

	// Ping checks the store is reachable
	Ping(ctx context.Context) error
}
