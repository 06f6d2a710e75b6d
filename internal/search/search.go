// Package search runs substring queries and summaries over reference data
// and fleet snapshots. Every function is a pure transform over its inputs;
// nothing is indexed or cached between calls.
package search

import (
	"sort"
	"strings"

	"busmate/internal/transit"
)

// Stops returns the stops whose name, Kannada name, code or any served
// route number contains query, case-insensitively, in input order.
// An empty query matches every stop.
func Stops(stops []transit.Stop, query string) []transit.Stop {
	q := strings.ToLower(query)
	out := make([]transit.Stop, 0, len(stops))
	for _, s := range stops {
		if stopMatches(s, q) {
			out = append(out, s)
		}
	}
	return out
}

func stopMatches(s transit.Stop, q string) bool {
	if contains(s.Name, q) || contains(s.NameKn, q) || contains(s.Code, q) {
		return true
	}
	for _, r := range s.Routes {
		if contains(r, q) {
			return true
		}
	}
	return false
}

// Routes returns the routes whose number, endpoints or via name (in either
// language) contain query, restricted to category when it is non-empty.
func Routes(routes []transit.Route, query string, category transit.Category) []transit.Route {
	q := strings.ToLower(query)
	out := make([]transit.Route, 0, len(routes))
	for _, r := range routes {
		if category != "" && r.Category != category {
			continue
		}
		if routeMatches(r, q) {
			out = append(out, r)
		}
	}
	return out
}

func routeMatches(r transit.Route, q string) bool {
	for _, f := range []string{r.Number, r.From, r.FromKn, r.To, r.ToKn, r.Via, r.ViaKn} {
		if contains(f, q) {
			return true
		}
	}
	return false
}

// contains lowercases the field; Kannada script has no case so it is unaffected.
func contains(field, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(field), lowerQuery)
}

// BusesAtStop returns the buses whose next stop is stopID.
func BusesAtStop(buses []transit.Bus, stopID string) []transit.Bus {
	out := make([]transit.Bus, 0)
	for _, b := range buses {
		if b.NextStopID == stopID {
			out = append(out, b)
		}
	}
	return out
}

// BusesOnRoute returns the buses of routeID; an empty routeID returns all of them.
func BusesOnRoute(buses []transit.Bus, routeID string) []transit.Bus {
	if routeID == "" {
		return buses
	}
	out := make([]transit.Bus, 0)
	for _, b := range buses {
		if b.RouteID == routeID {
			out = append(out, b)
		}
	}
	return out
}

// Popular picks the first bus of each of the limit routes with the most
// buses. Ties keep the order in which routes first appear.
func Popular(buses []transit.Bus, limit int) []transit.Bus {
	type group struct {
		first transit.Bus
		count int
	}
	var order []string
	groups := map[string]*group{}
	for _, b := range buses {
		g, ok := groups[b.RouteID]
		if !ok {
			g = &group{first: b}
			groups[b.RouteID] = g
			order = append(order, b.RouteID)
		}
		g.count++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return groups[order[i]].count > groups[order[j]].count
	})
	if limit >= 0 && len(order) > limit {
		order = order[:limit]
	}
	out := make([]transit.Bus, 0, len(order))
	for _, id := range order {
		out = append(out, groups[id].first)
	}
	return out
}
