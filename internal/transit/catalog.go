package transit

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed bangalore.yaml
var bangaloreYAML []byte

// Catalog is the immutable stop and route reference data.
type Catalog struct {
	stops  []Stop
	routes []Route

	stopIdx  map[string]int
	routeIdx map[string]int
}

type document struct {
	Stops  []Stop  `yaml:"stops" validate:"min=1,dive"`
	Routes []Route `yaml:"routes" validate:"min=1,dive"`
}

// Default returns the built-in Bangalore catalog.
func Default() (*Catalog, error) {
	return Parse(bangaloreYAML)
}

// Load reads a catalog from a YAML file; an empty path selects the built-in data.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference data: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML reference document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode reference data: %w", err)
	}
	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("validate reference data: %w", err)
	}
	return NewCatalog(doc.Stops, doc.Routes)
}

// NewCatalog indexes stops and routes and checks referential integrity.
func NewCatalog(stops []Stop, routes []Route) (*Catalog, error) {
	c := &Catalog{
		stops:    stops,
		routes:   routes,
		stopIdx:  make(map[string]int, len(stops)),
		routeIdx: make(map[string]int, len(routes)),
	}
	for i, s := range stops {
		if _, dup := c.stopIdx[s.ID]; dup {
			return nil, fmt.Errorf("duplicate stop id %q", s.ID)
		}
		c.stopIdx[s.ID] = i
	}
	for i, r := range routes {
		if _, dup := c.routeIdx[r.ID]; dup {
			return nil, fmt.Errorf("duplicate route id %q", r.ID)
		}
		c.routeIdx[r.ID] = i
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every route has stops and that each of them resolves.
func (c *Catalog) Validate() error {
	for _, r := range c.routes {
		if len(r.Stops) == 0 {
			return fmt.Errorf("route %q has no stops", r.ID)
		}
		if !r.Category.Valid() {
			return fmt.Errorf("route %q has unknown category %q", r.ID, r.Category)
		}
		for _, sid := range r.Stops {
			if _, ok := c.stopIdx[sid]; !ok {
				return fmt.Errorf("route %q references stop %q: %w", r.ID, sid, ErrNotFound)
			}
		}
	}
	return nil
}

// Stops returns the stops in reference order. Callers must not modify the slice.
func (c *Catalog) Stops() []Stop { return c.stops }

// Routes returns the routes in reference order. Callers must not modify the slice.
func (c *Catalog) Routes() []Route { return c.routes }

func (c *Catalog) Stop(id string) (Stop, bool) {
	i, ok := c.stopIdx[id]
	if !ok {
		return Stop{}, false
	}
	return c.stops[i], true
}

func (c *Catalog) Route(id string) (Route, bool) {
	i, ok := c.routeIdx[id]
	if !ok {
		return Route{}, false
	}
	return c.routes[i], true
}

// CheckBus reports whether a bus references a known route and one of that route's stops.
func (c *Catalog) CheckBus(b Bus) error {
	r, ok := c.Route(b.RouteID)
	if !ok {
		return fmt.Errorf("bus %s route %q: %w", b.ID, b.RouteID, ErrNotFound)
	}
	for _, sid := range r.Stops {
		if sid == b.NextStopID {
			return nil
		}
	}
	return fmt.Errorf("bus %s next stop %q not on route %s: %w", b.ID, b.NextStopID, r.ID, ErrNotFound)
}
