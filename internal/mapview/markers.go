// Package mapview turns the fleet and the stop list into plain marker data
// for a map client, and map clicks back into a selection.
package mapview

import (
	"errors"
	"fmt"

	"busmate/internal/i18n"
	"busmate/internal/sim"
	"busmate/internal/transit"
)

var ErrUnknownKind = errors.New("unknown marker kind")

type Kind string

const (
	KindBus  Kind = "bus"
	KindStop Kind = "stop"
)

const stopColor = "#3b82f6"

var crowdColors = map[transit.CrowdLevel]string{
	transit.Empty:        "#22c55e",
	transit.FewSeats:     "#84cc16",
	transit.StandingRoom: "#eab308",
	transit.Crowded:      "#f97316",
	transit.VeryCrowded:  "#ef4444",
}

// Marker is one pin on the map. Bus-only and stop-only fields are omitted
// for the other kind.
type Marker struct {
	Kind     Kind    `json:"kind"`
	ID       string  `json:"id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Label    string  `json:"label"`
	Detail   string  `json:"detail"`
	Color    string  `json:"color"`
	Selected bool    `json:"selected,omitempty"`

	CrowdLevel       string `json:"crowdLevel,omitempty"`
	Status           string `json:"status,omitempty"`
	NextStop         string `json:"nextStop,omitempty"`
	EstimatedArrival int    `json:"estimatedArrival,omitempty"`
	Speed            int    `json:"speed,omitempty"`

	Code   string   `json:"code,omitempty"`
	Routes []string `json:"routes,omitempty"`
}

// Markers returns one marker per bus followed by one per stop. Text is
// localized into lang; selectedID marks the selected bus.
func Markers(snap sim.Snapshot, catalog *transit.Catalog, tr *i18n.Translator, lang i18n.Language, selectedID string) []Marker {
	stops := catalog.Stops()
	out := make([]Marker, 0, len(snap.Buses)+len(stops))
	for _, b := range snap.Buses {
		m := Marker{
			Kind:             KindBus,
			ID:               b.ID,
			Lat:              b.Lat,
			Lng:              b.Lng,
			Label:            b.Number,
			Detail:           i18n.Pick(lang, b.From, b.FromKn) + " → " + i18n.Pick(lang, b.To, b.ToKn),
			Color:            crowdColors[b.CrowdLevel],
			Selected:         b.ID == selectedID,
			CrowdLevel:       tr.CrowdLevel(lang, b.CrowdLevel),
			Status:           tr.Status(lang, b.Status),
			EstimatedArrival: b.EstimatedArrival,
			Speed:            b.Speed,
		}
		if m.Color == "" {
			m.Color = crowdColors[transit.Empty]
		}
		if s, ok := catalog.Stop(b.NextStopID); ok {
			m.NextStop = i18n.Pick(lang, s.Name, s.NameKn)
		}
		out = append(out, m)
	}
	for _, s := range stops {
		out = append(out, Marker{
			Kind:   KindStop,
			ID:     s.ID,
			Lat:    s.Lat,
			Lng:    s.Lng,
			Label:  i18n.Pick(lang, s.Name, s.NameKn),
			Detail: s.Code,
			Color:  stopColor,
			Code:   s.Code,
			Routes: s.Routes,
		})
	}
	return out
}

// Click selects the bus behind a marker. A stop click selects the first bus
// heading to that stop.
func Click(store *sim.Store, kind Kind, id string) (transit.Bus, error) {
	switch kind {
	case KindBus:
		return store.Select(id)
	case KindStop:
		return store.SelectStop(id)
	}
	return transit.Bus{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
