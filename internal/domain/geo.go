package domain

import "math"

const (
	earthRadiusKm = 6371.0

	DefaultGeofenceRadiusKm = 0.5
)

// DistanceKm is the Haversine great-circle distance between two points.
// Inputs are not validated; NaN propagates.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// WithinGeofence reports whether the technician is at most radiusKm from the site.
func WithinGeofence(techLat, techLon, siteLat, siteLon, radiusKm float64) bool {
	return DistanceKm(techLat, techLon, siteLat, siteLon) <= radiusKm
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
