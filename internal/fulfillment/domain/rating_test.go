package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-marketplace/pkg/errors"
)

func TestApplyNewRating_Sequence(t *testing.T) {
	mean, count := 0.0, 0
	var err error
	for _, r := range []int{3, 4, 5} {
		mean, count, err = ApplyNewRating(mean, count, r)
		require.NoError(t, err)
	}
	assert.InDelta(t, 4.0, mean, 1e-9)
	assert.Equal(t, 3, count)
}

func TestApplyNewRating_OrderDoesNotMatter(t *testing.T) {
	orders := [][]int{{3, 4, 5}, {5, 4, 3}, {4, 3, 5}}
	for _, seq := range orders {
		agg := RatedAggregate{}
		for _, r := range seq {
			var err error
			agg, err = agg.Apply(r)
			require.NoError(t, err)
		}
		assert.InDelta(t, 4.0, agg.Rating, 1e-9, "sequence %v", seq)
		assert.Equal(t, 3, agg.TotalReviews)
	}
}

func TestRecomputeFromSet_MatchesIncremental(t *testing.T) {
	ratings := []int{3, 4, 5, 1, 2, 5}

	mean, count := 0.0, 0
	for _, r := range ratings {
		var err error
		mean, count, err = ApplyNewRating(mean, count, r)
		require.NoError(t, err)
	}

	fullMean, fullCount, err := RecomputeFromSet(ratings)
	require.NoError(t, err)
	assert.InDelta(t, fullMean, mean, 1e-9)
	assert.Equal(t, fullCount, count)
}

func TestRecomputeFromSet_Empty(t *testing.T) {
	mean, count, err := RecomputeFromSet(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0, count)
}

func TestApplyNewRating_Rejects(t *testing.T) {
	_, _, err := ApplyNewRating(0, 0, 6)
	assert.True(t, errors.HasReason(err, ReasonInvalidRating))

	_, _, err = ApplyNewRating(0, 0, 0)
	assert.True(t, errors.HasReason(err, ReasonInvalidRating))

	_, _, err = ApplyNewRating(4.5, -1, 3)
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, _, err = RecomputeFromSet([]int{3, 9})
	assert.True(t, errors.HasReason(err, ReasonInvalidRating))
}

func TestDistribution(t *testing.T) {
	d := Distribution([]int{5, 5, 4, 1})
	assert.Equal(t, RatingDistribution{1: 1, 2: 0, 3: 0, 4: 1, 5: 2}, d)
}
