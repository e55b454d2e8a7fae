package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

var (
	// ErrInvalidRating is returned when a rating is outside MinRating..MaxRating.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInconsistentAggregate is returned when a removal or replacement
	// does not match the aggregate's contents.
	ErrInconsistentAggregate = errors.New("inconsistent rating aggregate")
)

// RatingAggregate is the running review summary of a course.
// The sum of live ratings is kept so the average is exact rather than
// recomputed from an already rounded value.
type RatingAggregate struct {
	Sum   int `json:"rating_sum"`
	Count int `json:"review_count"`
}

// ValidateRating checks that r is a whole star rating.
func ValidateRating(r int) error {
	if r < MinRating || r > MaxRating {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, r)
	}
	return nil
}

// Average is sum/count rounded to one decimal place, or 0 when there are no reviews.
func (a RatingAggregate) Average() float64 {
	if a.Count <= 0 {
		return 0
	}
	avg := decimal.NewFromInt(int64(a.Sum)).
		DivRound(decimal.NewFromInt(int64(a.Count)), 8).
		Round(1)
	return avg.InexactFloat64()
}

// Add returns the aggregate with rating r included.
func (a RatingAggregate) Add(r int) (RatingAggregate, error) {
	if err := ValidateRating(r); err != nil {
		return a, err
	}
	return RatingAggregate{Sum: a.Sum + r, Count: a.Count + 1}, nil
}

// Replace returns the aggregate with one rating changed from old to new.
func (a RatingAggregate) Replace(oldRating, newRating int) (RatingAggregate, error) {
	if err := ValidateRating(newRating); err != nil {
		return a, err
	}
	if a.Count <= 0 {
		return a, fmt.Errorf("%w: replace on empty aggregate", ErrInconsistentAggregate)
	}
	next := RatingAggregate{Sum: a.Sum - oldRating + newRating, Count: a.Count}
	if next.Sum < next.Count*MinRating {
		return a, fmt.Errorf("%w: sum %d below count %d", ErrInconsistentAggregate, next.Sum, next.Count)
	}
	return next, nil
}

// Remove returns the aggregate with rating r taken out.
// Removing the last review yields the zero aggregate; the count never goes negative.
func (a RatingAggregate) Remove(r int) RatingAggregate {
	if a.Count <= 1 {
		return RatingAggregate{}
	}
	next := RatingAggregate{Sum: a.Sum - r, Count: a.Count - 1}
	if next.Sum < next.Count*MinRating {
		// Clamp drift from a legacy row so the average stays in range.
		next.Sum = next.Count * MinRating
	}
	if next.Sum > next.Count*MaxRating {
		next.Sum = next.Count * MaxRating
	}
	return next
}
