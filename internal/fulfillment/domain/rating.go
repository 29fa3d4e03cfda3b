package domain

// MinRating and MaxRating bound a single review score
const (
	MinRating = 1
	MaxRating = 5
)

// ValidateRating checks a single review score
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return ErrInvalidRating.WithDetails(map[string]interface{}{"rating": rating})
	}
	return nil
}

// RatedAggregate is the running mean kept on restaurants and products.
// Rating is the mean of exactly TotalReviews individual scores.
type RatedAggregate struct {
	Rating       float64
	TotalReviews int
}

// Validate checks the aggregate ranges
func (a RatedAggregate) Validate() error {
	if a.TotalReviews < 0 || a.Rating < 0 || a.Rating > MaxRating {
		return ErrInvalidAggregate.WithDetails(map[string]interface{}{
			"rating":        a.Rating,
			"total_reviews": a.TotalReviews,
		})
	}
	if a.TotalReviews == 0 && a.Rating != 0 {
		return ErrInvalidAggregate.WithDetails(map[string]interface{}{"rating": a.Rating, "total_reviews": 0})
	}
	return nil
}

// Apply folds one new score into the aggregate
func (a RatedAggregate) Apply(newRating int) (RatedAggregate, error) {
	mean, count, err := ApplyNewRating(a.Rating, a.TotalReviews, newRating)
	if err != nil {
		return RatedAggregate{}, err
	}
	return RatedAggregate{Rating: mean, TotalReviews: count}, nil
}

// ApplyNewRating updates a running mean in O(1):
//
//	mean' = (mean*count + r) / (count+1)
//
// It is exact only if every earlier update went through this same function.
func ApplyNewRating(currentRating float64, currentCount int, newRating int) (float64, int, error) {
	if err := ValidateRating(newRating); err != nil {
		return 0, 0, err
	}
	if err := (RatedAggregate{Rating: currentRating, TotalReviews: currentCount}).Validate(); err != nil {
		return 0, 0, err
	}
	next := currentCount + 1
	mean := (currentRating*float64(currentCount) + float64(newRating)) / float64(next)
	return mean, next, nil
}

// RecomputeFromSet rebuilds the aggregate from every surviving score. The
// running mean has no incremental inverse, so removals go through here.
// An empty set yields (0, 0).
func RecomputeFromSet(ratings []int) (float64, int, error) {
	if len(ratings) == 0 {
		return 0, 0, nil
	}
	sum := 0
	for _, r := range ratings {
		if err := ValidateRating(r); err != nil {
			return 0, 0, err
		}
		sum += r
	}
	return float64(sum) / float64(len(ratings)), len(ratings), nil
}

// RatingDistribution counts scores per star value
type RatingDistribution map[int]int

// Distribution tallies scores 1..5, always including every bucket
func Distribution(ratings []int) RatingDistribution {
	dist := RatingDistribution{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for _, r := range ratings {
		if ValidateRating(r) == nil {
			dist[r]++
		}
	}
	return dist
}
