package transit

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a stop, route or bus identifier does not resolve.
var ErrNotFound = errors.New("not found")

type Category string

const (
	CategoryOrdinary Category = "ordinary"
	CategoryVolvo    Category = "volvo"
	CategoryVajra    Category = "vajra"
	CategoryVayu     Category = "vayu"
)

var Categories = []Category{CategoryOrdinary, CategoryVolvo, CategoryVajra, CategoryVayu}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type Stop struct {
	ID     string   `yaml:"id" json:"id" validate:"required"`
	Name   string   `yaml:"name" json:"name" validate:"required"`
	NameKn string   `yaml:"nameKn" json:"nameKn" validate:"required"`
	Code   string   `yaml:"code" json:"code" validate:"required"`
	Lat    float64  `yaml:"lat" json:"lat" validate:"latitude"`
	Lng    float64  `yaml:"lng" json:"lng" validate:"longitude"`
	Routes []string `yaml:"routes" json:"routes"`
}

type Route struct {
	ID        string   `yaml:"id" json:"id" validate:"required"`
	Number    string   `yaml:"number" json:"number" validate:"required"`
	From      string   `yaml:"from" json:"from" validate:"required"`
	FromKn    string   `yaml:"fromKn" json:"fromKn"`
	To        string   `yaml:"to" json:"to" validate:"required"`
	ToKn      string   `yaml:"toKn" json:"toKn"`
	Via       string   `yaml:"via" json:"via"`
	ViaKn     string   `yaml:"viaKn" json:"viaKn"`
	Stops     []string `yaml:"stops" json:"stops" validate:"min=1,dive,required"`
	Frequency int      `yaml:"frequency" json:"frequency" validate:"gt=0"` // minutes
	FirstBus  string   `yaml:"firstBus" json:"firstBus" validate:"datetime=15:04"`
	LastBus   string   `yaml:"lastBus" json:"lastBus" validate:"datetime=15:04"`
	Category  Category `yaml:"type" json:"type" validate:"oneof=ordinary volvo vajra vayu"`
}

// CrowdLevel is ordered from Empty to VeryCrowded.
type CrowdLevel int

const (
	Empty CrowdLevel = iota
	FewSeats
	StandingRoom
	Crowded
	VeryCrowded
)

// CrowdLevels lists every level in order.
var CrowdLevels = []CrowdLevel{Empty, FewSeats, StandingRoom, Crowded, VeryCrowded}

var crowdNames = [...]string{"empty", "fewSeats", "standingRoom", "crowded", "veryCrowded"}

func (c CrowdLevel) Valid() bool { return c >= Empty && c <= VeryCrowded }

func (c CrowdLevel) String() string {
	if !c.Valid() {
		return "unknown"
	}
	return crowdNames[c]
}

// OccupancyPercent is the fill ratio shown next to a crowd level.
func (c CrowdLevel) OccupancyPercent() int {
	if !c.Valid() {
		return 0
	}
	return (int(c) + 1) * 20
}

func (c CrowdLevel) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *CrowdLevel) UnmarshalText(b []byte) error {
	for i, n := range crowdNames {
		if n == string(b) {
			*c = CrowdLevel(i)
			return nil
		}
	}
	return errors.New("unknown crowd level: " + string(b))
}

type Status string

const (
	OnTime    Status = "onTime"
	Delayed   Status = "delayed"
	Cancelled Status = "cancelled"
)

type Bus struct {
	ID               string     `json:"id"`
	Number           string     `json:"number"`
	RouteID          string     `json:"routeId"`
	From             string     `json:"from"`
	FromKn           string     `json:"fromKn"`
	To               string     `json:"to"`
	ToKn             string     `json:"toKn"`
	Via              string     `json:"via"`
	ViaKn            string     `json:"viaKn"`
	Lat              float64    `json:"currentLat"`
	Lng              float64    `json:"currentLng"`
	CrowdLevel       CrowdLevel `json:"crowdLevel"`
	Status           Status     `json:"status"`
	NextStopID       string     `json:"nextStopId"`
	EstimatedArrival int        `json:"estimatedArrival"` // minutes, never below 1
	LastUpdated      time.Time  `json:"lastUpdated"`
	Speed            int        `json:"speed"` // km/h
}
