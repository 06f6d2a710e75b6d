package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"busmate/internal/gtfsrt"
	"busmate/internal/i18n"
	"busmate/internal/mapview"
	"busmate/internal/search"
	"busmate/internal/sim"
	"busmate/internal/transit"
)

const defaultPopularLimit = 4

type fleetView struct {
	Buses       []transit.Bus `json:"buses"`
	LastRefresh time.Time     `json:"lastRefresh"`
	Version     uint64        `json:"version"`
}

func viewOf(snap sim.Snapshot, buses []transit.Bus) fleetView {
	if buses == nil {
		buses = []transit.Bus{}
	}
	return fleetView{Buses: buses, LastRefresh: snap.LastRefresh, Version: snap.Version}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBuses(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	routeID := r.URL.Query().Get("route")
	if routeID != "" {
		if _, ok := s.catalog.Route(routeID); !ok {
			s.writeError(w, fmt.Errorf("route %q: %w", routeID, transit.ErrNotFound))
			return
		}
	}
	writeJSON(w, http.StatusOK, viewOf(snap, search.BusesOnRoute(snap.Buses, routeID)))
}

func (s *Server) handleBus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	b, ok := s.store.Snapshot().Bus(id)
	if !ok {
		s.writeError(w, fmt.Errorf("bus %q: %w", id, transit.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Refresh()
	writeJSON(w, http.StatusOK, viewOf(snap, snap.Buses))
}

func (s *Server) handleStops(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, search.Stops(s.catalog.Stops(), r.URL.Query().Get("q")))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	stop, ok := s.catalog.Stop(id)
	if !ok {
		s.writeError(w, fmt.Errorf("stop %q: %w", id, transit.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, stop)
}

func (s *Server) handleStopBuses(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.catalog.Stop(id); !ok {
		s.writeError(w, fmt.Errorf("stop %q: %w", id, transit.ErrNotFound))
		return
	}
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, viewOf(snap, search.BusesAtStop(snap.Buses, id)))
}

func (s *Server) handleNearbyStops(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		s.writeError(w, badRequest{msg: fmt.Sprintf("invalid lat: %q", q.Get("lat"))})
		return
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil || lng < -180 || lng > 180 {
		s.writeError(w, badRequest{msg: fmt.Sprintf("invalid lng: %q", q.Get("lng"))})
		return
	}
	limit, err := intParam(r, "limit", 5)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, search.NearbyStops(s.catalog.Stops(), lat, lng, limit))
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := transit.Category(q.Get("category"))
	if category != "" && !category.Valid() {
		s.writeError(w, badRequest{msg: fmt.Sprintf("invalid category: %q", category)})
		return
	}
	writeJSON(w, http.StatusOK, search.Routes(s.catalog.Routes(), q.Get("q"), category))
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	route, ok := s.catalog.Route(id)
	if !ok {
		s.writeError(w, fmt.Errorf("route %q: %w", id, transit.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, route)
}

func (s *Server) handleRouteBuses(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.catalog.Route(id); !ok {
		s.writeError(w, fmt.Errorf("route %q: %w", id, transit.ErrNotFound))
		return
	}
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, viewOf(snap, search.BusesOnRoute(snap.Buses, id)))
}

func (s *Server) handleRefreshRoute(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, err := s.store.RefreshRoute(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(snap, search.BusesOnRoute(snap.Buses, id)))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, search.Summarize(s.store.Snapshot().Buses, len(s.catalog.Stops())))
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultPopularLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, search.Popular(s.store.Snapshot().Buses, limit))
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.Selected()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type selectionRequest struct {
	BusID  string `json:"busId"`
	StopID string `json:"stopId"`
}

func (s *Server) handlePutSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	var (
		b   transit.Bus
		err error
	)
	switch {
	case req.BusID != "" && req.StopID != "":
		err = badRequest{msg: "set busId or stopId, not both"}
	case req.BusID != "":
		b, err = s.store.Select(req.BusID)
	case req.StopID != "":
		b, err = s.store.SelectStop(req.StopID)
	default:
		err = badRequest{msg: "busId or stopId is required"}
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteSelection(w http.ResponseWriter, r *http.Request) {
	s.store.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Favorites())
}

type favoriteResponse struct {
	RouteID  string `json:"routeId"`
	Favorite bool   `json:"favorite"`
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["routeId"]
	on, err := s.store.ToggleFavorite(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, favoriteResponse{RouteID: id, Favorite: on})
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	lang, err := s.language(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	markers := mapview.Markers(s.store.Snapshot(), s.catalog, s.tr, lang, s.store.SelectedID())
	writeJSON(w, http.StatusOK, markers)
}

type clickRequest struct {
	Kind mapview.Kind `json:"kind"`
	ID   string       `json:"id"`
}

func (s *Server) handleMapClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	b, err := mapview.Click(s.store, req.Kind, req.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type messagesResponse struct {
	Language i18n.Language     `json:"language"`
	Messages map[string]string `json:"messages"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	lang, err := s.language(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse{Language: lang, Messages: s.tr.Table(lang)})
}

type languageBody struct {
	Language string `json:"language"`
}

func (s *Server) handleGetLanguage(w http.ResponseWriter, r *http.Request) {
	lang, err := s.prefs.Language(r.Context())
	if err != nil {
		s.log.Warn("language preference unavailable", "error", err)
	}
	writeJSON(w, http.StatusOK, languageBody{Language: string(lang)})
}

func (s *Server) handlePutLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageBody
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	lang, err := i18n.ParseLanguage(req.Language)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.prefs.SetLanguage(r.Context(), lang); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, languageBody{Language: string(lang)})
}

func (s *Server) handleVehiclePositions(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	data, err := gtfsrt.Marshal(gtfsrt.VehiclePositions(snap, s.catalog, snap.LastRefresh))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	_, _ = w.Write(data)
}

// language reads ?lang= and falls back to the stored preference.
func (s *Server) language(r *http.Request) (i18n.Language, error) {
	if v := r.URL.Query().Get("lang"); v != "" {
		return i18n.ParseLanguage(v)
	}
	lang, err := s.prefs.Language(r.Context())
	if err != nil {
		s.log.Warn("language preference unavailable", "error", err)
	}
	return lang, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest{msg: fmt.Sprintf("invalid %s: %q", name, v)}
	}
	return n, nil
}
