package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Pesokrava/review_widget/internal/domain"
)

const uniqueViolation = "23505"

// ReviewRepository implements domain.ReviewRepository for PostgreSQL
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new PostgreSQL review repository
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a review
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, product_id, website, name, rating, title, content, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		review.ID,
		review.ProductID,
		review.Website,
		review.Name,
		review.Rating,
		review.Title,
		review.Content,
		review.Date,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return err
	}

	return nil
}

// Find retrieves the reviews of a partition matching the query
func (r *ReviewRepository) Find(ctx context.Context, q domain.ReviewQuery) ([]domain.Review, error) {
	query := `
		SELECT id, product_id, website, name, rating, title, content, date
		FROM reviews
		WHERE product_id = $1 AND website = $2
	`
	args := []any{q.ProductID, q.Website}
	if q.Rating != nil {
		query += ` AND rating = $3`
		args = append(args, *q.Rating)
	}
	query += " ORDER BY " + orderBy(q.Sort)

	reviews := []domain.Review{}
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, err
	}

	return reviews, nil
}

// Aggregate returns the review count and mean rating of a partition
func (r *ReviewRepository) Aggregate(ctx context.Context, p domain.Partition) (*domain.RatingAggregate, error) {
	query := `
		SELECT COUNT(*) AS count, COALESCE(AVG(rating), 0)::float8 AS average
		FROM reviews
		WHERE product_id = $1 AND website = $2
	`

	var row struct {
		Count   int     `db:"count"`
		Average float64 `db:"average"`
	}
	if err := r.db.GetContext(ctx, &row, query, p.ProductID, p.Website); err != nil {
		return nil, fmt.Errorf("failed to aggregate reviews: %w", err)
	}

	return &domain.RatingAggregate{Count: row.Count, Average: row.Average}, nil
}

// Ping checks the database connection
func (r *ReviewRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// idAsc orders ids bytewise like Go string comparison, whatever the database locale
const idAsc = `id COLLATE "C" ASC`

// orderBy mirrors domain.SortKey.Less
func orderBy(sort domain.SortKey) string {
	switch sort {
	case domain.SortOldest:
		return "date ASC, " + idAsc
	case domain.SortHighest:
		return "rating DESC, date DESC, " + idAsc
	case domain.SortLowest:
		return "rating ASC, date DESC, " + idAsc
	default:
		return "date DESC, " + idAsc
	}
}
