package application

import (
	"context"
	"testing"
	"time"

	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/pkg/errors"
	"go-marketplace/pkg/logger"
)

func newCatalogFixture() (*CatalogService, *MockRestaurants, *MockCatalog) {
	restaurants := NewMockRestaurants(&domain.Restaurant{
		ID: "r1", Name: "Dar Atlas", IsActive: true, Rating: 4.5, TotalReviews: 8, Version: 3,
		CreatedAt: testNow.Add(-time.Hour),
	})
	catalog := NewMockCatalog(&domain.Product{
		ID: "p1", RestaurantID: "r1", Name: "Tagine", UnitPrice: domain.MustMoney("10.00", "USD"),
		Available: true, Rating: 4, TotalReviews: 2, Version: 5,
	})
	opts := DefaultOptions()
	opts.Now = fixedClock(testNow)
	opts.NewID = sequentialIDs("cat")
	return NewCatalogService(restaurants, catalog, logger.New("test", "debug"), opts), restaurants, catalog
}

func validRestaurantInput() UpsertRestaurantInput {
	return UpsertRestaurantInput{
		Name:       "  Riad Kitchen ",
		Categories: []string{"Moroccan", "moroccan", " Grill ", ""},
		Latitude:   33.57,
		Longitude:  -7.59,
		Address:    domain.Address{Street: "2 Rue Atlas", City: "Casablanca", Country: "MA"},
		Hours:      domain.Schedule{{Day: time.Monday, Open: "09:00", Close: "23:00"}},
		IsActive:   true,
	}
}

func TestUpsertRestaurant_CreatesWithNormalizedFields(t *testing.T) {
	// Arrange
	svc, restaurants, _ := newCatalogFixture()

	// Act
	r, err := svc.UpsertRestaurant(context.Background(), validRestaurantInput())

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if r.ID != "cat-1" || r.Name != "Riad Kitchen" || r.Version != 1 {
		t.Errorf("unexpected restaurant: %+v", r)
	}
	if len(r.Categories) != 2 || r.Categories[0] != "moroccan" || r.Categories[1] != "grill" {
		t.Errorf("expected [moroccan grill], got %v", r.Categories)
	}
	if stored, _ := restaurants.GetRestaurant(context.Background(), "cat-1"); stored == nil {
		t.Error("expected restaurant to be stored")
	}
}

func TestUpsertRestaurant_KeepsRatingOnUpdate(t *testing.T) {
	// Arrange
	svc, _, _ := newCatalogFixture()
	input := validRestaurantInput()
	input.ID = "r1"

	// Act
	r, err := svc.UpsertRestaurant(context.Background(), input)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if r.Rating != 4.5 || r.TotalReviews != 8 {
		t.Errorf("expected rating aggregate to survive, got %v/%d", r.Rating, r.TotalReviews)
	}
	if r.Version != 4 {
		t.Errorf("expected version 4, got %d", r.Version)
	}
	if !r.CreatedAt.Equal(testNow.Add(-time.Hour)) {
		t.Errorf("expected original CreatedAt, got %v", r.CreatedAt)
	}
}

func TestUpsertRestaurant_RetriesWhenRatingChangesUnderneath(t *testing.T) {
	// Arrange
	svc, restaurants, _ := newCatalogFixture()
	fired := false
	restaurants.beforeSave = func() {
		if fired {
			return
		}
		fired = true
		if err := restaurants.UpdateRating(context.Background(), "r1", 3, 4.6, 9); err != nil {
			t.Errorf("concurrent rating update: %v", err)
		}
	}
	input := validRestaurantInput()
	input.ID = "r1"

	// Act
	r, err := svc.UpsertRestaurant(context.Background(), input)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	stored, _ := restaurants.GetRestaurant(context.Background(), "r1")
	if stored.Rating != 4.6 || stored.TotalReviews != 9 || stored.Version != 5 {
		t.Errorf("expected stored 4.6/9 at version 5, got %v/%d at %d", stored.Rating, stored.TotalReviews, stored.Version)
	}
	if stored.Name != "Riad Kitchen" {
		t.Errorf("expected catalog fields written, got name %q", stored.Name)
	}
	if r.Rating != 4.6 || r.Version != 5 {
		t.Errorf("expected returned 4.6 at version 5, got %v at %d", r.Rating, r.Version)
	}
}

func TestUpsertRestaurant_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*UpsertRestaurantInput)
	}{
		{"missing name", func(in *UpsertRestaurantInput) { in.Name = " " }},
		{"bad latitude", func(in *UpsertRestaurantInput) { in.Latitude = 91 }},
		{"missing city", func(in *UpsertRestaurantInput) { in.Address.City = "" }},
		{"bad hours", func(in *UpsertRestaurantInput) {
			in.Hours = domain.Schedule{{Day: time.Monday, Open: "23:00", Close: "09:00"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			svc, _, _ := newCatalogFixture()
			input := validRestaurantInput()
			tt.mutate(&input)

			// Act
			_, err := svc.UpsertRestaurant(context.Background(), input)

			// Assert
			if !errors.Is(err, errors.CodeValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUpsertProduct_Success(t *testing.T) {
	// Arrange
	svc, _, catalog := newCatalogFixture()

	// Act
	p, err := svc.UpsertProduct(context.Background(), UpsertProductInput{
		RestaurantID: "r1", Name: "Couscous", Category: " Mains ", Price: "12.50", Currency: "USD", Available: true,
	})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p.UnitPrice.String() != "12.50 USD" || p.Category != "mains" {
		t.Errorf("unexpected product: %+v", p)
	}
	if stored, _ := catalog.GetProduct(context.Background(), p.ID); stored == nil {
		t.Error("expected product to be stored")
	}
}

func TestUpsertProduct_KeepsRatingOnUpdate(t *testing.T) {
	// Arrange
	svc, _, _ := newCatalogFixture()

	// Act
	p, err := svc.UpsertProduct(context.Background(), UpsertProductInput{
		ID: "p1", RestaurantID: "r1", Name: "Tagine", Price: "11.00", Currency: "USD", Available: true,
	})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p.Rating != 4 || p.TotalReviews != 2 || p.Version != 6 {
		t.Errorf("expected rating 4/2 at version 6, got %v/%d at %d", p.Rating, p.TotalReviews, p.Version)
	}
}

func TestUpsertProduct_RetriesWhenRatingChangesUnderneath(t *testing.T) {
	// Arrange
	svc, _, catalog := newCatalogFixture()
	fired := false
	catalog.beforeSave = func() {
		if fired {
			return
		}
		fired = true
		if err := catalog.UpdateProductRating(context.Background(), "p1", 5, 5, 3); err != nil {
			t.Errorf("concurrent rating update: %v", err)
		}
	}

	// Act
	p, err := svc.UpsertProduct(context.Background(), UpsertProductInput{
		ID: "p1", RestaurantID: "r1", Name: "Tagine", Price: "11.00", Currency: "USD", Available: true,
	})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	stored, _ := catalog.GetProduct(context.Background(), "p1")
	if stored.Rating != 5 || stored.TotalReviews != 3 || stored.Version != 7 {
		t.Errorf("expected stored 5/3 at version 7, got %v/%d at %d", stored.Rating, stored.TotalReviews, stored.Version)
	}
	if stored.UnitPrice.String() != "11.00 USD" || p.Version != 7 {
		t.Errorf("expected new price at version 7, got %s at %d", stored.UnitPrice, p.Version)
	}
}

func TestUpsertProduct_Errors(t *testing.T) {
	svc, _, _ := newCatalogFixture()
	ctx := context.Background()

	_, err := svc.UpsertProduct(ctx, UpsertProductInput{RestaurantID: "nope", Name: "X", Price: "1.00", Currency: "USD"})
	if !errors.HasReason(err, domain.ReasonRestaurantNotFound) {
		t.Errorf("expected RESTAURANT_NOT_FOUND, got %v", err)
	}

	_, err = svc.UpsertProduct(ctx, UpsertProductInput{RestaurantID: "r1", Name: "X", Price: "1.001", Currency: "USD"})
	if !errors.HasReason(err, domain.ReasonInvalidAmount) {
		t.Errorf("expected INVALID_AMOUNT, got %v", err)
	}

	_, err = svc.UpsertProduct(ctx, UpsertProductInput{RestaurantID: "r1", Name: "X", Price: "1.00", Currency: "XYZ"})
	if !errors.HasReason(err, domain.ReasonInvalidCurrency) {
		t.Errorf("expected INVALID_CURRENCY, got %v", err)
	}
}

func TestCatalogGetRestaurant_NotFound(t *testing.T) {
	svc, _, _ := newCatalogFixture()

	_, err := svc.GetRestaurant(context.Background(), "missing")

	if !errors.Is(err, errors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}
