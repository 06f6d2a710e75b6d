package search

import (
	"math"
	"sort"

	"busmate/internal/transit"
)

type Stats struct {
	TotalBuses    int `json:"totalBuses"`
	TotalStops    int `json:"totalStops"`
	OnTime        int `json:"onTime"`
	Delayed       int `json:"delayed"`
	Cancelled     int `json:"cancelled"`
	OnTimePercent int `json:"onTimePercent"`
}

func Summarize(buses []transit.Bus, totalStops int) Stats {
	st := Stats{TotalBuses: len(buses), TotalStops: totalStops}
	for _, b := range buses {
		switch b.Status {
		case transit.OnTime:
			st.OnTime++
		case transit.Delayed:
			st.Delayed++
		case transit.Cancelled:
			st.Cancelled++
		}
	}
	if st.TotalBuses > 0 {
		st.OnTimePercent = int(math.Floor(float64(st.OnTime)*100/float64(st.TotalBuses) + 0.5))
	}
	return st
}

type NearbyStop struct {
	transit.Stop
	DistanceMeters float64 `json:"distanceMeters"`
}

// NearbyStops orders stops by distance from a point and keeps the closest
// limit of them; limit <= 0 keeps all.
func NearbyStops(stops []transit.Stop, lat, lng float64, limit int) []NearbyStop {
	out := make([]NearbyStop, 0, len(stops))
	for _, s := range stops {
		out = append(out, NearbyStop{Stop: s, DistanceMeters: transit.DistanceMeters(lat, lng, s.Lat, s.Lng)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
