package application

import (
	"context"

	"go.uber.org/zap"

	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/internal/fulfillment/ports"
	"go-marketplace/pkg/errors"
	"go-marketplace/pkg/logger"
)

// RatingService maintains restaurant and product rating aggregates and the
// reviews that feed them
type RatingService struct {
	restaurants ports.RestaurantLookup
	catalog     ports.Catalog
	reviews     ports.ReviewStore
	orders      ports.OrderStore
	notifier    ports.Notifier
	log         *logger.Logger
	opts        Options
}

// NewRatingService creates a new rating service. notifier may be nil.
func NewRatingService(
	restaurants ports.RestaurantLookup,
	catalog ports.Catalog,
	reviews ports.ReviewStore,
	orders ports.OrderStore,
	notifier ports.Notifier,
	log *logger.Logger,
	opts Options,
) *RatingService {
	return &RatingService{
		restaurants: restaurants,
		catalog:     catalog,
		reviews:     reviews,
		orders:      orders,
		notifier:    notifier,
		log:         log,
		opts:        opts.withDefaults(),
	}
}

// RatingOutput is an aggregate after an update
type RatingOutput struct {
	ID           string
	Rating       float64
	TotalReviews int
}

// ApplyReview folds one new score into a restaurant's running mean
func (s *RatingService) ApplyReview(ctx context.Context, restaurantID string, rating int) (*RatingOutput, error) {
	if err := domain.ValidateRating(rating); err != nil {
		return nil, err
	}
	return s.updateRestaurant(ctx, restaurantID, func(agg domain.RatedAggregate) (domain.RatedAggregate, error) {
		return agg.Apply(rating)
	})
}

// RecomputeRestaurantRating replaces a restaurant's aggregate with the mean of
// allRatings. Used when a review is removed.
func (s *RatingService) RecomputeRestaurantRating(ctx context.Context, restaurantID string, allRatings []int) (*RatingOutput, error) {
	mean, count, err := domain.RecomputeFromSet(allRatings)
	if err != nil {
		return nil, err
	}
	return s.updateRestaurant(ctx, restaurantID, func(domain.RatedAggregate) (domain.RatedAggregate, error) {
		return domain.RatedAggregate{Rating: mean, TotalReviews: count}, nil
	})
}

// ApplyProductReview folds one new score into a product's running mean
func (s *RatingService) ApplyProductReview(ctx context.Context, productID string, rating int) (*RatingOutput, error) {
	if err := domain.ValidateRating(rating); err != nil {
		return nil, err
	}
	return retryOnConflict(ctx, s.opts.Retry, func() (*RatingOutput, error) {
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load product")
		}
		if product == nil {
			return nil, domain.NewProductNotFound(productID)
		}
		next, err := product.RatedAggregate().Apply(rating)
		if err != nil {
			return nil, err
		}
		if err := s.catalog.UpdateProductRating(ctx, productID, product.Version, next.Rating, next.TotalReviews); err != nil {
			return nil, errors.Wrap(err, "failed to update product rating")
		}
		return &RatingOutput{ID: productID, Rating: next.Rating, TotalReviews: next.TotalReviews}, nil
	})
}

func (s *RatingService) updateRestaurant(ctx context.Context, restaurantID string, fn func(domain.RatedAggregate) (domain.RatedAggregate, error)) (*RatingOutput, error) {
	out, err := retryOnConflict(ctx, s.opts.Retry, func() (*RatingOutput, error) {
		restaurant, err := s.loadRestaurant(ctx, restaurantID)
		if err != nil {
			return nil, err
		}
		next, err := fn(restaurant.RatedAggregate())
		if err != nil {
			return nil, err
		}
		return s.writeRating(ctx, restaurant, next)
	})
	if err != nil {
		return nil, err
	}
	s.logRating(ctx, out)
	return out, nil
}

func (s *RatingService) loadRestaurant(ctx context.Context, restaurantID string) (*domain.Restaurant, error) {
	restaurant, err := s.restaurants.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load restaurant")
	}
	if restaurant == nil {
		return nil, domain.NewRestaurantNotFound(restaurantID)
	}
	return restaurant, nil
}

// writeRating stores next if the restaurant is still at the version it was read at
func (s *RatingService) writeRating(ctx context.Context, restaurant *domain.Restaurant, next domain.RatedAggregate) (*RatingOutput, error) {
	if err := s.restaurants.UpdateRating(ctx, restaurant.ID, restaurant.Version, next.Rating, next.TotalReviews); err != nil {
		return nil, errors.Wrap(err, "failed to update restaurant rating")
	}
	return &RatingOutput{ID: restaurant.ID, Rating: next.Rating, TotalReviews: next.TotalReviews}, nil
}

func (s *RatingService) logRating(ctx context.Context, out *RatingOutput) {
	s.log.WithContext(ctx).Info("restaurant rating updated",
		zap.String("restaurant_id", out.ID),
		zap.Float64("rating", out.Rating),
		zap.Int("total_reviews", out.TotalReviews),
	)
}

// SubmitReviewInput represents a customer's review of a delivered order
type SubmitReviewInput struct {
	CustomerID string
	OrderID    string
	Rating     int
	Comment    string
	Images     []string
}

// SubmitReviewOutput is the stored review and the restaurant's new rating
type SubmitReviewOutput struct {
	Review     *domain.Review
	Restaurant *RatingOutput
}

// SubmitReview stores a review and folds it into the restaurant rating
func (s *RatingService) SubmitReview(ctx context.Context, input SubmitReviewInput) (*SubmitReviewOutput, error) {
	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load order")
	}
	if order == nil {
		return nil, domain.NewOrderNotFound(input.OrderID)
	}

	existing, err := s.reviews.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check existing review")
	}
	if existing != nil {
		return nil, domain.ErrDuplicateReview.WithDetails(map[string]interface{}{"order_id": order.ID})
	}

	review, err := domain.NewReview(s.opts.NewID(), input.CustomerID, order, input.Rating, input.Comment, input.Images, s.opts.Now())
	if err != nil {
		return nil, err
	}

	// The increment is only valid against the aggregate as it stood before
	// the review became visible in the store.
	restaurant, err := s.loadRestaurant(ctx, review.RestaurantID)
	if err != nil {
		return nil, err
	}

	// The store's unique order_id constraint is the final arbiter when two
	// submissions race past the check above.
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, errors.Wrap(err, "failed to create review")
	}

	rating, err := s.applyCreatedReview(ctx, restaurant, review)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, review.RestaurantID, ports.TemplateNewReview, ports.Notification{
		OrderID:      review.OrderID,
		RestaurantID: review.RestaurantID,
		CustomerID:   review.CustomerID,
		Data:         map[string]interface{}{"rating": review.Rating, "review_id": review.ID},
	})

	return &SubmitReviewOutput{Review: review, Restaurant: rating}, nil
}

// DeleteReviewInput identifies the review and the customer asking to delete it
type DeleteReviewInput struct {
	ReviewID   string
	CustomerID string
}

// DeleteReview removes a review and recomputes the restaurant rating from the
// surviving reviews
func (s *RatingService) DeleteReview(ctx context.Context, input DeleteReviewInput) (*RatingOutput, error) {
	review, err := s.reviews.FindByID(ctx, input.ReviewID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load review")
	}
	if review == nil {
		return nil, domain.NewReviewNotFound(input.ReviewID)
	}
	if review.CustomerID != input.CustomerID {
		return nil, domain.ErrReviewerNotOwner
	}

	if err := s.reviews.Delete(ctx, review.ID); err != nil {
		return nil, errors.Wrap(err, "failed to delete review")
	}

	s.log.WithContext(ctx).Info("review deleted",
		zap.String("review_id", review.ID),
		zap.String("restaurant_id", review.RestaurantID),
	)
	return s.recomputeFromStore(ctx, review.RestaurantID)
}

// applyCreatedReview folds a just-stored review into the aggregate read
// before it was stored. If anything touched the restaurant in between, the
// stored reviews may already include it, so the aggregate is rebuilt instead.
func (s *RatingService) applyCreatedReview(ctx context.Context, before *domain.Restaurant, review *domain.Review) (*RatingOutput, error) {
	next, err := before.RatedAggregate().Apply(review.Rating)
	if err == nil {
		var out *RatingOutput
		out, err = s.writeRating(ctx, before, next)
		if err == nil {
			s.logRating(ctx, out)
			return out, nil
		}
	}

	log := s.log.WithContext(ctx)
	fields := []zap.Field{
		zap.Error(err),
		zap.String("review_id", review.ID),
		zap.String("restaurant_id", review.RestaurantID),
	}
	if errors.Is(err, errors.CodeConflict) {
		log.Debug("restaurant changed while storing review, recomputing", fields...)
	} else {
		log.Error("incremental rating update failed, recomputing", fields...)
	}
	return s.recomputeFromStore(ctx, review.RestaurantID)
}

// recomputeFromStore rebuilds the aggregate from the stored reviews. The
// reviews are read after the restaurant on every attempt so a write never
// carries a set older than the version it replaces.
func (s *RatingService) recomputeFromStore(ctx context.Context, restaurantID string) (*RatingOutput, error) {
	return s.updateRestaurant(ctx, restaurantID, func(domain.RatedAggregate) (domain.RatedAggregate, error) {
		ratings, err := s.reviews.RatingsByRestaurant(ctx, restaurantID)
		if err != nil {
			return domain.RatedAggregate{}, errors.Wrap(err, "failed to load restaurant ratings")
		}
		mean, count, err := domain.RecomputeFromSet(ratings)
		if err != nil {
			return domain.RatedAggregate{}, err
		}
		return domain.RatedAggregate{Rating: mean, TotalReviews: count}, nil
	})
}

// RatingStats summarises a restaurant's reviews
type RatingStats struct {
	RestaurantID string
	Average      float64
	TotalReviews int
	Distribution domain.RatingDistribution
}

// RestaurantRatingStats computes the mean, count and 1..5 distribution from
// the stored reviews
func (s *RatingService) RestaurantRatingStats(ctx context.Context, restaurantID string) (*RatingStats, error) {
	restaurant, err := s.restaurants.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load restaurant")
	}
	if restaurant == nil {
		return nil, domain.NewRestaurantNotFound(restaurantID)
	}

	ratings, err := s.reviews.RatingsByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load restaurant ratings")
	}
	mean, count, err := domain.RecomputeFromSet(ratings)
	if err != nil {
		return nil, err
	}

	return &RatingStats{
		RestaurantID: restaurantID,
		Average:      mean,
		TotalReviews: count,
		Distribution: domain.Distribution(ratings),
	}, nil
}

func (s *RatingService) notify(ctx context.Context, recipientID string, kind ports.TemplateKind, payload ports.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, recipientID, kind, payload); err != nil {
		s.log.WithContext(ctx).Warn("failed to send notification",
			zap.Error(err),
			zap.String("recipient_id", recipientID),
			zap.String("template", string(kind)),
		)
	}
}
