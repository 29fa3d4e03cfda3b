package domain

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by DistanceTo
const EarthRadiusKm = 6371.0

// GeoPoint is an immutable latitude/longitude pair in degrees
type GeoPoint struct {
	lat float64
	lng float64
}

// NewGeoPoint validates coordinate ranges
func NewGeoPoint(latitude, longitude float64) (GeoPoint, error) {
	if math.IsNaN(latitude) || latitude < -90 || latitude > 90 {
		return GeoPoint{}, ErrInvalidLatitude.WithDetails(map[string]interface{}{"latitude": fmt.Sprint(latitude)})
	}
	if math.IsNaN(longitude) || longitude < -180 || longitude > 180 {
		return GeoPoint{}, ErrInvalidLongitude.WithDetails(map[string]interface{}{"longitude": fmt.Sprint(longitude)})
	}
	return GeoPoint{lat: latitude, lng: longitude}, nil
}

// Latitude in degrees
func (p GeoPoint) Latitude() float64 { return p.lat }

// Longitude in degrees
func (p GeoPoint) Longitude() float64 { return p.lng }

// DistanceTo returns the great-circle distance in kilometres (haversine)
func (p GeoPoint) DistanceTo(other GeoPoint) float64 {
	lat1 := toRadians(p.lat)
	lat2 := toRadians(other.lat)
	dLat := toRadians(other.lat - p.lat)
	dLng := toRadians(other.lng - p.lng)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// BoundingBox is a lat/lng rectangle that contains every point within a radius
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns a conservative rectangle around p for radiusKm. It is a
// prefilter for stores; exact filtering still uses DistanceTo.
func (p GeoPoint) BoundingBox(radiusKm float64) BoundingBox {
	dLat := radiusKm / EarthRadiusKm * 180 / math.Pi
	box := BoundingBox{
		MinLat: math.Max(-90, p.lat-dLat),
		MaxLat: math.Min(90, p.lat+dLat),
		MinLng: -180,
		MaxLng: 180,
	}

	// Near the poles or for huge radii the longitude span covers everything.
	cosLat := math.Cos(toRadians(math.Max(math.Abs(box.MinLat), math.Abs(box.MaxLat))))
	if cosLat <= 1e-9 {
		return box
	}
	dLng := dLat / cosLat
	if dLng >= 180 || p.lng-dLng < -180 || p.lng+dLng > 180 {
		return box
	}
	box.MinLng = p.lng - dLng
	box.MaxLng = p.lng + dLng
	return box
}

// Contains reports whether q falls inside the box
func (b BoundingBox) Contains(q GeoPoint) bool {
	return q.lat >= b.MinLat && q.lat <= b.MaxLat && q.lng >= b.MinLng && q.lng <= b.MaxLng
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
