package transit

import "math"

const earthRadiusMeters = 6371000.0

// DistanceMeters is the haversine distance between two coordinates.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// BearingDeg is the initial bearing from the first point to the second, in [0, 360).
func BearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	y := math.Sin((lon2-lon1)*math.Pi/180.0) * math.Cos(lat2*math.Pi/180.0)
	x := math.Cos(lat1*math.Pi/180.0)*math.Sin(lat2*math.Pi/180.0) - math.Sin(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*math.Cos((lon2-lon1)*math.Pi/180.0)
	brng := math.Atan2(y, x) * 180.0 / math.Pi
	if brng < 0 {
		brng += 360
	}
	return brng
}
