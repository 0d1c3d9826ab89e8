package domain

import (
	"math"
	"strconv"
)

// SortKey selects one of the supported review orderings.
type SortKey int

const (
	SortNewest SortKey = iota
	SortOldest
	SortHighest
	SortLowest
)

// ParseSortKey maps a request value to a SortKey. Unknown and empty values fall back to SortNewest.
func ParseSortKey(s string) SortKey {
	switch s {
	case "oldest":
		return SortOldest
	case "highest":
		return SortHighest
	case "lowest":
		return SortLowest
	default:
		return SortNewest
	}
}

func (k SortKey) String() string {
	switch k {
	case SortOldest:
		return "oldest"
	case SortHighest:
		return "highest"
	case SortLowest:
		return "lowest"
	default:
		return "newest"
	}
}

// Less reports whether a sorts before b. Ties on the primary key are broken by date
// (newest first) for rating orders, then by id ascending, so the order is total.
func (k SortKey) Less(a, b Review) bool {
	switch k {
	case SortHighest, SortLowest:
		if a.Rating != b.Rating {
			if k == SortHighest {
				return a.Rating > b.Rating
			}
			return a.Rating < b.Rating
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
	case SortOldest:
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
	default:
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
	}
	return a.ID < b.ID
}

// ParseRatingFilter returns the exact rating a filter value restricts to.
// "all", empty and anything that is not an integer 1..5 mean no restriction.
func ParseRatingFilter(s string) (int, bool) {
	rating, err := strconv.Atoi(s)
	if err != nil || rating < MinRating || rating > MaxRating {
		return 0, false
	}
	return rating, true
}

const (
	MinRating = 1
	MaxRating = 5
)

// ReviewQuery is the structured predicate and ordering for a partition read.
type ReviewQuery struct {
	Partition
	Rating *int
	Sort   SortKey
}

// NewReviewQuery builds a query from raw request parameters.
func NewReviewQuery(productID, website, filter, sort string) ReviewQuery {
	q := ReviewQuery{
		Partition: NewPartition(productID, website),
		Sort:      ParseSortKey(sort),
	}
	if rating, ok := ParseRatingFilter(filter); ok {
		q.Rating = &rating
	}
	return q
}

// Matches reports whether a review satisfies the query predicate.
func (q ReviewQuery) Matches(r Review) bool {
	if r.ProductID != q.ProductID || r.Website != q.Website {
		return false
	}
	return q.Rating == nil || r.Rating == *q.Rating
}

// FilterLabel is the canonical string for the rating restriction.
func (q ReviewQuery) FilterLabel() string {
	if q.Rating == nil {
		return "all"
	}
	return strconv.Itoa(*q.Rating)
}

// RoundRating rounds an average to one decimal place, half away from zero.
func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}
