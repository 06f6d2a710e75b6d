// Package publisher pushes fleet snapshots to NATS.
package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"busmate/internal/gtfsrt"
	"busmate/internal/logger"
	"busmate/internal/sim"
	"busmate/internal/transit"
)

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
}

type NATSPublisher struct {
	nc          *nats.Conn
	conn        conn
	prefix      string
	catalog     *transit.Catalog
	logSubjects bool
	metrics     PublisherMetrics
	log         logger.Logger
}

type Options struct {
	Prefix      string
	LogSubjects bool
	Catalog     *transit.Catalog // resolves next-stop bearings; optional
	Metrics     PublisherMetrics
	Log         logger.Logger
}

func NewNATSPublisher(url string, opts Options) (*NATSPublisher, error) {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	m := opts.Metrics
	nc, err := nats.Connect(url,
		nats.Name("busmate"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	p := newPublisher(nc, opts)
	p.nc = nc
	return p, nil
}

func newPublisher(c conn, opts Options) *NATSPublisher {
	prefix := subjectToken(opts.Prefix)
	if strings.TrimSpace(opts.Prefix) == "" {
		prefix = "busmate"
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	return &NATSPublisher{
		conn:        c,
		prefix:      prefix,
		catalog:     opts.Catalog,
		logSubjects: opts.LogSubjects,
		metrics:     opts.Metrics,
		log:         log,
	}
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

type PositionMessage struct {
	BusID            string             `json:"busId"`
	RouteID          string             `json:"routeId"`
	Number           string             `json:"number"`
	Timestamp        time.Time          `json:"timestamp"`
	Lat              float64            `json:"lat"`
	Lon              float64            `json:"lon"`
	Bearing          float64            `json:"bearing"`
	SpeedMps         float64            `json:"speedMps"`
	NextStopID       string             `json:"nextStopId"`
	EstimatedArrival int                `json:"estimatedArrival"`
	CrowdLevel       transit.CrowdLevel `json:"crowdLevel"`
	Status           transit.Status     `json:"status"`
	Version          uint64             `json:"version"`
}

func (p *NATSPublisher) positionMessage(b transit.Bus, version uint64) PositionMessage {
	msg := PositionMessage{
		BusID:            b.ID,
		RouteID:          b.RouteID,
		Number:           b.Number,
		Timestamp:        b.LastUpdated,
		Lat:              b.Lat,
		Lon:              b.Lng,
		SpeedMps:         float64(b.Speed) / 3.6,
		NextStopID:       b.NextStopID,
		EstimatedArrival: b.EstimatedArrival,
		CrowdLevel:       b.CrowdLevel,
		Status:           b.Status,
		Version:          version,
	}
	if p.catalog != nil {
		if s, ok := p.catalog.Stop(b.NextStopID); ok {
			msg.Bearing = transit.BearingDeg(b.Lat, b.Lng, s.Lat, s.Lng)
		}
	}
	return msg
}

// PositionSubject is <prefix>.<route>.<bus>.
func (p *NATSPublisher) PositionSubject(routeID, busID string) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, subjectToken(routeID), subjectToken(busID))
}

func (p *NATSPublisher) FeedSubject() string {
	return p.prefix + ".gtfsrt"
}

func (p *NATSPublisher) PublishPosition(msg PositionMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.publish(p.PositionSubject(msg.RouteID, msg.BusID), b)
}

// PublishSnapshot sends every bus position and then the GTFS-RT feed.
// It keeps going after a failed publish and returns the first error.
func (p *NATSPublisher) PublishSnapshot(snap sim.Snapshot) error {
	var first error
	for _, b := range snap.Buses {
		if err := p.PublishPosition(p.positionMessage(b, snap.Version)); err != nil && first == nil {
			first = err
		}
	}
	feed, err := gtfsrt.Marshal(gtfsrt.VehiclePositions(snap, p.catalog, snap.LastRefresh))
	if err == nil {
		err = p.publish(p.FeedSubject(), feed)
	}
	if err != nil && first == nil {
		first = err
	}
	return first
}

// Listener adapts PublishSnapshot for sim.Store.Subscribe; errors are logged.
func (p *NATSPublisher) Listener() sim.Listener {
	return func(snap sim.Snapshot) {
		if err := p.PublishSnapshot(snap); err != nil {
			p.log.Error("publish snapshot", "version", snap.Version, "error", err)
		}
	}
}

func (p *NATSPublisher) publish(subject string, data []byte) error {
	if p.logSubjects {
		p.log.Debug("nats publish", "subject", subject, "bytes", len(data))
	}
	start := time.Now()
	err := p.conn.Publish(subject, data)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
