// Package gtfsrt renders the simulated fleet as a GTFS-Realtime
// VehiclePositions feed.
package gtfsrt

import (
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"busmate/internal/sim"
	"busmate/internal/transit"
)

const Version = "2.0"

// VehiclePositions builds a full-dataset feed with one entity per bus.
// catalog resolves next-stop coordinates for the bearing; it may be nil.
func VehiclePositions(snap sim.Snapshot, catalog *transit.Catalog, now time.Time) *gtfsrtpb.FeedMessage {
	fm := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: proto.String(Version),
			Incrementality:      gtfsrtpb.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(unix(now)),
		},
		Entity: make([]*gtfsrtpb.FeedEntity, 0, len(snap.Buses)),
	}
	for _, b := range snap.Buses {
		fm.Entity = append(fm.Entity, &gtfsrtpb.FeedEntity{
			Id:      proto.String(b.ID),
			Vehicle: vehiclePosition(b, catalog),
		})
	}
	return fm
}

func vehiclePosition(b transit.Bus, catalog *transit.Catalog) *gtfsrtpb.VehiclePosition {
	pos := &gtfsrtpb.Position{
		Latitude:  proto.Float32(float32(b.Lat)),
		Longitude: proto.Float32(float32(b.Lng)),
		Speed:     proto.Float32(float32(float64(b.Speed) / 3.6)),
	}
	if catalog != nil {
		if stop, ok := catalog.Stop(b.NextStopID); ok {
			pos.Bearing = proto.Float32(float32(transit.BearingDeg(b.Lat, b.Lng, stop.Lat, stop.Lng)))
		}
	}
	return &gtfsrtpb.VehiclePosition{
		Trip: &gtfsrtpb.TripDescriptor{
			RouteId:              proto.String(b.RouteID),
			ScheduleRelationship: scheduleRelationship(b.Status).Enum(),
		},
		Vehicle: &gtfsrtpb.VehicleDescriptor{
			Id:    proto.String(b.ID),
			Label: proto.String(b.Number),
		},
		Position:        pos,
		StopId:          proto.String(b.NextStopID),
		CurrentStatus:   gtfsrtpb.VehiclePosition_IN_TRANSIT_TO.Enum(),
		Timestamp:       proto.Uint64(unix(b.LastUpdated)),
		OccupancyStatus: Occupancy(b.CrowdLevel).Enum(),
	}
}

func scheduleRelationship(s transit.Status) gtfsrtpb.TripDescriptor_ScheduleRelationship {
	if s == transit.Cancelled {
		return gtfsrtpb.TripDescriptor_CANCELED
	}
	return gtfsrtpb.TripDescriptor_SCHEDULED
}

// Occupancy maps a crowd level onto the GTFS-RT occupancy scale.
func Occupancy(c transit.CrowdLevel) gtfsrtpb.VehiclePosition_OccupancyStatus {
	switch c {
	case transit.Empty:
		return gtfsrtpb.VehiclePosition_EMPTY
	case transit.FewSeats:
		return gtfsrtpb.VehiclePosition_FEW_SEATS_AVAILABLE
	case transit.StandingRoom:
		return gtfsrtpb.VehiclePosition_STANDING_ROOM_ONLY
	case transit.Crowded:
		return gtfsrtpb.VehiclePosition_CRUSHED_STANDING_ROOM_ONLY
	default:
		return gtfsrtpb.VehiclePosition_FULL
	}
}

func Marshal(fm *gtfsrtpb.FeedMessage) ([]byte, error) {
	return proto.Marshal(fm)
}

func unix(t time.Time) uint64 {
	if t.IsZero() || t.Unix() < 0 {
		return 0
	}
	return uint64(t.Unix())
}
