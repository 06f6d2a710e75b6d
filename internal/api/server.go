// Package api serves the fleet, search, map and language endpoints as JSON.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"busmate/internal/i18n"
	"busmate/internal/logger"
	"busmate/internal/mapview"
	"busmate/internal/metrics"
	"busmate/internal/sim"
	"busmate/internal/transit"
)

type Server struct {
	store   *sim.Store
	catalog *transit.Catalog
	tr      *i18n.Translator
	prefs   *i18n.Preferences
	metrics *metrics.Collector
	log     logger.Logger
	router  *mux.Router
}

type Deps struct {
	Store       *sim.Store
	Translator  *i18n.Translator
	Preferences *i18n.Preferences
	Metrics     *metrics.Collector // optional
	Log         logger.Logger
}

func NewServer(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	prefs := d.Preferences
	if prefs == nil {
		prefs = i18n.NewPreferences(nil, i18n.English)
	}
	s := &Server{
		store:   d.Store,
		catalog: d.Store.Catalog(),
		tr:      d.Translator,
		prefs:   prefs,
		metrics: d.Metrics,
		log:     log,
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument, cors)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/buses", s.handleBuses).Methods(http.MethodGet)
	api.HandleFunc("/buses/{id}", s.handleBus).Methods(http.MethodGet)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)

	api.HandleFunc("/stops", s.handleStops).Methods(http.MethodGet)
	api.HandleFunc("/stops/nearby", s.handleNearbyStops).Methods(http.MethodGet)
	api.HandleFunc("/stops/{id}", s.handleStop).Methods(http.MethodGet)
	api.HandleFunc("/stops/{id}/buses", s.handleStopBuses).Methods(http.MethodGet)

	api.HandleFunc("/routes", s.handleRoutes).Methods(http.MethodGet)
	api.HandleFunc("/routes/{id}", s.handleRoute).Methods(http.MethodGet)
	api.HandleFunc("/routes/{id}/buses", s.handleRouteBuses).Methods(http.MethodGet)
	api.HandleFunc("/routes/{id}/refresh", s.handleRefreshRoute).Methods(http.MethodPost)

	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/popular", s.handlePopular).Methods(http.MethodGet)

	api.HandleFunc("/selection", s.handleGetSelection).Methods(http.MethodGet)
	api.HandleFunc("/selection", s.handlePutSelection).Methods(http.MethodPut)
	api.HandleFunc("/selection", s.handleDeleteSelection).Methods(http.MethodDelete)

	api.HandleFunc("/favorites", s.handleFavorites).Methods(http.MethodGet)
	api.HandleFunc("/favorites/{routeId}", s.handleToggleFavorite).Methods(http.MethodPut)

	api.HandleFunc("/map/markers", s.handleMarkers).Methods(http.MethodGet)
	api.HandleFunc("/map/click", s.handleMapClick).Methods(http.MethodPost)

	api.HandleFunc("/i18n", s.handleMessages).Methods(http.MethodGet)
	api.HandleFunc("/language", s.handleGetLanguage).Methods(http.MethodGet)
	api.HandleFunc("/language", s.handlePutLanguage).Methods(http.MethodPut)

	r.HandleFunc("/gtfs-rt/vehicle-positions.pb", s.handleVehiclePositions).Methods(http.MethodGet)
	return r
}

// Serve starts the API server on addr.
func (s *Server) Serve(addr string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("api server error", "error", err)
		}
	}()
	s.log.Info("api listening", "addr", addr)
	return srv
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		}
		s.log.Debug("http request", "method", r.Method, "route", route, "code", rec.code)
	})
}

type response[T any] struct {
	Data T `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// badRequest marks client input errors that carry no sentinel of their own.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func writeJSON[T any](w http.ResponseWriter, code int, data T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(response[T]{Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	var br badRequest
	switch {
	case errors.As(err, &br),
		errors.Is(err, i18n.ErrUnsupportedLanguage),
		errors.Is(err, mapview.ErrUnknownKind):
		code = http.StatusBadRequest
	case errors.Is(err, transit.ErrNotFound), errors.Is(err, sim.ErrNoSelection):
		code = http.StatusNotFound
	}
	if code == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest{msg: "invalid request body: " + err.Error()}
	}
	return nil
}
