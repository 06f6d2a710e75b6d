package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"busmate/internal/logger"
	"busmate/internal/transit"
)

type Collector struct {
	reg *prometheus.Registry

	FleetSize   prometheus.Gauge
	Subscribers prometheus.Gauge
	Buses       *prometheus.GaugeVec // status label: onTime|delayed|cancelled

	Ticks     prometheus.Counter
	Refreshes prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	HTTPRequests *prometheus.CounterVec // route, code

	TickDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram

	TickInterval  prometheus.Gauge // seconds
	SlotsPerRoute prometheus.Gauge
}

func NewCollector(tickInterval time.Duration, slotsPerRoute int) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		FleetSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busmate_fleet_size",
			Help: "Number of buses in the current snapshot.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busmate_subscribers",
			Help: "Number of registered snapshot listeners.",
		}),
		Buses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "busmate_buses",
			Help: "Buses in the current snapshot by status.",
		}, []string{"status"}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busmate_ticks_total",
			Help: "Total live update ticks applied.",
		}),
		Refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busmate_refreshes_total",
			Help: "Total full fleet regenerations.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busmate_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busmate_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busmate_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busmate_http_requests_total",
			Help: "HTTP API requests by route template and status code.",
		}, []string{"route", "code"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "busmate_tick_duration_seconds",
			Help:    "Duration of a tick including listener notification.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "busmate_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		TickInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busmate_tick_interval_seconds",
			Help: "Live update interval in seconds.",
		}),
		SlotsPerRoute: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busmate_slots_per_route",
			Help: "Buses generated per route.",
		}),
	}

	reg.MustRegister(
		c.FleetSize, c.Subscribers, c.Buses,
		c.Ticks, c.Refreshes,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.HTTPRequests, c.TickDuration, c.PublishDuration,
		c.TickInterval, c.SlotsPerRoute,
	)

	c.TickInterval.Set(tickInterval.Seconds())
	c.SlotsPerRoute.Set(float64(slotsPerRoute))

	return c
}

// ObserveFleet records the size and status breakdown of a snapshot.
func (c *Collector) ObserveFleet(buses []transit.Bus) {
	counts := map[transit.Status]int{transit.OnTime: 0, transit.Delayed: 0, transit.Cancelled: 0}
	for _, b := range buses {
		counts[b.Status]++
	}
	c.FleetSize.Set(float64(len(buses)))
	for s, n := range counts {
		c.Buses.WithLabelValues(string(s)).Set(float64(n))
	}
}

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "error", err)
		}
	}()
	log.Info("metrics listening", "addr", addr)
	return srv
}
