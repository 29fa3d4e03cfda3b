package application

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/internal/fulfillment/ports"
	"go-marketplace/pkg/errors"
	"go-marketplace/pkg/logger"
)

// SortKey orders discovery results
type SortKey string

const (
	SortByDistance SortKey = "distance"
	SortByRating   SortKey = "rating"
	SortByName     SortKey = "name"
)

// ParseSortKey validates a sort key; empty means distance
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(s)) {
	case "", SortByDistance:
		return SortByDistance, nil
	case SortByRating:
		return SortByRating, nil
	case SortByName:
		return SortByName, nil
	}
	return "", errors.NewValidation(fmt.Sprintf("unknown sort key %q", s), map[string]interface{}{
		"allowed": []string{string(SortByDistance), string(SortByRating), string(SortByName)},
	})
}

// NearbyQuery describes a proximity search
type NearbyQuery struct {
	Center     domain.GeoPoint
	RadiusKm   float64
	Categories []string
	MinRating  float64
	SortBy     SortKey
	Page       int
	Limit      int
}

// NearbyResult is one restaurant with its distance from the query center
type NearbyResult struct {
	Restaurant *domain.Restaurant
	DistanceKm float64
}

// NearbyPage is one page of discovery results
type NearbyPage struct {
	Results    []NearbyResult
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// DiscoveryOptions tunes the discovery service
type DiscoveryOptions struct {
	DefaultRadiusKm  float64
	DefaultPageLimit int
	MaxPageLimit     int
	CacheTTL         time.Duration
}

// DiscoveryService finds restaurants near a point
type DiscoveryService struct {
	query ports.RestaurantQuery
	cache ports.SearchCache
	log   *logger.Logger
	opts  DiscoveryOptions
}

// NewDiscoveryService creates a discovery service. cache may be nil.
func NewDiscoveryService(query ports.RestaurantQuery, cache ports.SearchCache, log *logger.Logger, opts DiscoveryOptions) *DiscoveryService {
	if opts.DefaultRadiusKm <= 0 {
		opts.DefaultRadiusKm = 5
	}
	if opts.DefaultPageLimit < 1 {
		opts.DefaultPageLimit = 20
	}
	if opts.MaxPageLimit < opts.DefaultPageLimit {
		opts.MaxPageLimit = opts.DefaultPageLimit
	}
	return &DiscoveryService{query: query, cache: cache, log: log, opts: opts}
}

// DefaultRadiusKm is applied by callers that receive no radius
func (s *DiscoveryService) DefaultRadiusKm() float64 {
	return s.opts.DefaultRadiusKm
}

// FindNearbyRestaurants returns active restaurants within RadiusKm of Center
// that match the filters, sorted and paginated. Ties on the sort key fall
// back to restaurant ID so pages are stable.
func (s *DiscoveryService) FindNearbyRestaurants(ctx context.Context, q NearbyQuery) (*NearbyPage, error) {
	// details carry strings: NaN and Inf do not survive JSON encoding
	if !isFinite(q.RadiusKm) || q.RadiusKm <= 0 {
		return nil, domain.ErrInvalidRadius.WithDetails(map[string]interface{}{"radius_km": fmt.Sprint(q.RadiusKm)})
	}
	if !isFinite(q.MinRating) || q.MinRating < 0 || q.MinRating > domain.MaxRating {
		return nil, domain.ErrInvalidAggregate.WithDetails(map[string]interface{}{"min_rating": fmt.Sprint(q.MinRating)})
	}
	sortKey, err := ParseSortKey(string(q.SortBy))
	if err != nil {
		return nil, err
	}
	q.SortBy = sortKey
	q.Categories = normalizeCategories(q.Categories)
	q.Page, q.Limit = normalizePage(q.Page, q.Limit, s.opts.DefaultPageLimit, s.opts.MaxPageLimit)

	key := cacheKey(q)
	if page, ok := s.fromCache(ctx, key); ok {
		return page, nil
	}

	candidates, err := s.query.ListCandidates(ctx, ports.CandidateFilter{
		Box:        q.Center.BoundingBox(q.RadiusKm),
		ActiveOnly: true,
		Categories: q.Categories,
		MinRating:  q.MinRating,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list restaurants")
	}

	matches := make([]NearbyResult, 0, len(candidates))
	for _, r := range candidates {
		if !r.IsActive {
			continue
		}
		d := q.Center.DistanceTo(r.Location)
		if d > q.RadiusKm {
			continue
		}
		if !r.HasAnyCategory(q.Categories) || r.Rating < q.MinRating {
			continue
		}
		matches = append(matches, NearbyResult{Restaurant: r, DistanceKm: d})
	}

	sortResults(matches, q.SortBy)

	page := paginate(matches, q.Page, q.Limit)
	s.toCache(ctx, key, page)

	s.log.WithContext(ctx).Debug("nearby search",
		zap.Float64("lat", q.Center.Latitude()),
		zap.Float64("lng", q.Center.Longitude()),
		zap.Float64("radius_km", q.RadiusKm),
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(matches)),
	)
	return page, nil
}

func sortResults(results []NearbyResult, key SortKey) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		switch key {
		case SortByRating:
			if a.Restaurant.Rating != b.Restaurant.Rating {
				return a.Restaurant.Rating > b.Restaurant.Rating
			}
		case SortByName:
			an, bn := strings.ToLower(a.Restaurant.Name), strings.ToLower(b.Restaurant.Name)
			if an != bn {
				return an < bn
			}
		default:
			if a.DistanceKm != b.DistanceKm {
				return a.DistanceKm < b.DistanceKm
			}
		}
		return a.Restaurant.ID < b.Restaurant.ID
	})
}

func paginate(results []NearbyResult, page, limit int) *NearbyPage {
	total := len(results)
	start := (page - 1) * limit
	if start < 0 || start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return &NearbyPage{
		Results:    results[start:end],
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages(total, limit),
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// cachedPage is the serialized form of a NearbyPage
type cachedPage struct {
	Results    []cachedResult `json:"results"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

type cachedResult struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Categories   []string `json:"categories"`
	Latitude     float64  `json:"lat"`
	Longitude    float64  `json:"lng"`
	Rating       float64  `json:"rating"`
	TotalReviews int      `json:"total_reviews"`
	DistanceKm   float64  `json:"distance_km"`
}

func cacheKey(q NearbyQuery) string {
	cats := append([]string(nil), q.Categories...)
	sort.Strings(cats)
	return fmt.Sprintf("discovery:nearby:%.5f:%.5f:%.3f:%s:%.2f:%s:%d:%d",
		q.Center.Latitude(), q.Center.Longitude(), q.RadiusKm,
		strings.Join(cats, ","), q.MinRating, q.SortBy, q.Page, q.Limit)
}

func (s *DiscoveryService) fromCache(ctx context.Context, key string) (*NearbyPage, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.WithContext(ctx).Warn("discovery cache read failed", zap.Error(err), zap.String("key", key))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var cp cachedPage
	if err := json.Unmarshal(raw, &cp); err != nil {
		s.log.WithContext(ctx).Warn("discovery cache entry unreadable", zap.Error(err), zap.String("key", key))
		return nil, false
	}

	page := &NearbyPage{
		Results:    make([]NearbyResult, 0, len(cp.Results)),
		Page:       cp.Page,
		Limit:      cp.Limit,
		Total:      cp.Total,
		TotalPages: cp.TotalPages,
	}
	for _, r := range cp.Results {
		loc, err := domain.NewGeoPoint(r.Latitude, r.Longitude)
		if err != nil {
			return nil, false
		}
		page.Results = append(page.Results, NearbyResult{
			Restaurant: &domain.Restaurant{
				ID:           r.ID,
				Name:         r.Name,
				Categories:   r.Categories,
				Location:     loc,
				IsActive:     true,
				Rating:       r.Rating,
				TotalReviews: r.TotalReviews,
			},
			DistanceKm: r.DistanceKm,
		})
	}
	return page, true
}

func (s *DiscoveryService) toCache(ctx context.Context, key string, page *NearbyPage) {
	if s.cache == nil || s.opts.CacheTTL <= 0 {
		return
	}
	cp := cachedPage{
		Results:    make([]cachedResult, 0, len(page.Results)),
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	}
	for _, r := range page.Results {
		cp.Results = append(cp.Results, cachedResult{
			ID:           r.Restaurant.ID,
			Name:         r.Restaurant.Name,
			Categories:   r.Restaurant.Categories,
			Latitude:     r.Restaurant.Location.Latitude(),
			Longitude:    r.Restaurant.Location.Longitude(),
			Rating:       r.Restaurant.Rating,
			TotalReviews: r.Restaurant.TotalReviews,
			DistanceKm:   r.DistanceKm,
		})
	}
	raw, err := json.Marshal(cp)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.opts.CacheTTL); err != nil {
		s.log.WithContext(ctx).Warn("discovery cache write failed", zap.Error(err), zap.String("key", key))
	}
}
