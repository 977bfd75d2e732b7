package checkpoint

import "math"

const earthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between two coordinates.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

// WithinRadius reports whether the point lies within radius meters of the centre.
// A non-positive radius disables the check.
func WithinRadius(centreLat, centreLon, lat, lon, radius float64) bool {
	if radius <= 0 {
		return true
	}
	return DistanceMeters(centreLat, centreLon, lat, lon) <= radius
}
