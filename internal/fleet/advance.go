package fleet

import (
	"time"

	"busmate/internal/transit"
)

const tickJitter = 0.002 // degrees

// Advance returns the fleet one tick later. Positions drift by up to
// ±0.001 degrees, ETA counts down to a floor of 1, speed is redrawn and
// LastUpdated is stamped with now. Next stop and crowd level are carried
// over unchanged until the fleet is regenerated. The input is not modified.
func Advance(buses []transit.Bus, rnd Rand, now time.Time) []transit.Bus {
	out := make([]transit.Bus, len(buses))
	for i, b := range buses {
		b.Lat += (rnd.Float64() - 0.5) * tickJitter
		b.Lng += (rnd.Float64() - 0.5) * tickJitter
		b.EstimatedArrival = max(1, b.EstimatedArrival-1)
		b.Speed = rnd.IntN(speedRange) + minSpeed
		b.LastUpdated = now
		out[i] = b
	}
	return out
}
