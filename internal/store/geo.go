package store

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gigbook-workers/internal/common/config"
	"gigbook-workers/internal/models"
)

const earthRadiusKm = 6371.0

// GeoDistance estimates straight-line distance between two locations. A location is either
// a configured place name or a literal "lat,lon" pair.
type GeoDistance struct {
	places map[string]config.Coordinates
}

func NewGeoDistance(places map[string]config.Coordinates) *GeoDistance {
	normalized := make(map[string]config.Coordinates, len(places))
	for name, c := range places {
		normalized[models.NormalizeKey(name)] = c
	}
	return &GeoDistance{places: normalized}
}

func (g *GeoDistance) DistanceKm(a, b string) (float64, error) {
	from, err := g.resolve(a)
	if err != nil {
		return 0, err
	}
	to, err := g.resolve(b)
	if err != nil {
		return 0, err
	}
	return Haversine(from, to), nil
}

func (g *GeoDistance) resolve(location string) (config.Coordinates, error) {
	key := models.NormalizeKey(location)
	if c, ok := g.places[key]; ok {
		return c, nil
	}

	parts := strings.Split(key, ",")
	if len(parts) == 2 {
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if latErr == nil && lonErr == nil && math.Abs(lat) <= 90 && math.Abs(lon) <= 180 {
			return config.Coordinates{Lat: lat, Lon: lon}, nil
		}
	}
	return config.Coordinates{}, fmt.Errorf("unknown location %q", location)
}

// Haversine is the great-circle distance in kilometres.
func Haversine(a, b config.Coordinates) float64 {
	rad := math.Pi / 180
	dLat := (b.Lat - a.Lat) * rad
	dLon := (b.Lon - a.Lon) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*rad)*math.Cos(b.Lat*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
