package domain

import (
	"fmt"
	"math"

	"github.com/tidwall/geodesic"
)

// DistanceFunc returns the surface distance between two points in kilometres.
type DistanceFunc func(a, b Location) float64

// Distance method names accepted by DistanceByName.
const (
	DistanceGeodesic  = "geodesic"
	DistanceHaversine = "haversine"
)

// meanEarthRadiusKm is the IUGG mean radius R1.
const meanEarthRadiusKm = 6371.0088

// GeodesicDistance solves the inverse geodesic problem on the WGS-84 ellipsoid
// (Karney's algorithm).
func GeodesicDistance(a, b Location) float64 {
	var metres float64
	geodesic.WGS84.Inverse(a.Latitude, a.Longitude, b.Latitude, b.Longitude, &metres, nil, nil)
	return metres / 1000
}

// HaversineDistance is the great-circle distance on a sphere of the mean
// earth radius.
func HaversineDistance(a, b Location) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * meanEarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// DistanceByName resolves a configured distance method.
func DistanceByName(name string) (DistanceFunc, error) {
	switch name {
	case DistanceGeodesic, "":
		return GeodesicDistance, nil
	case DistanceHaversine:
		return HaversineDistance, nil
	default:
		return nil, fmt.Errorf("unknown distance method %q", name)
	}
}
