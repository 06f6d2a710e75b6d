package transit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Len(t, c.Stops(), 20)
	assert.Len(t, c.Routes(), 8)

	silk, ok := c.Stop("stop15")
	require.True(t, ok)
	assert.Equal(t, "Silk Board", silk.Name)
	assert.Equal(t, "SLK", silk.Code)

	r, ok := c.Route("r5")
	require.True(t, ok)
	assert.Equal(t, "V500", r.Number)
	assert.Equal(t, CategoryVolvo, r.Category)
	assert.Equal(t, []string{"stop1", "stop15", "stop3"}, r.Stops)

	_, ok = c.Route("r99")
	assert.False(t, ok)
}

func TestDefaultCatalogKeepsDuplicateStopCodes(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	var ids []string
	for _, s := range c.Stops() {
		if s.Code == "KRM" {
			ids = append(ids, s.ID)
		}
	}
	assert.Equal(t, []string{"stop2", "stop9"}, ids)
}

func TestParseRejectsBrokenReferences(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "unknown stop",
			doc: `
stops:
  - {id: s1, name: A, nameKn: A, code: A, lat: 12.9, lng: 77.5}
routes:
  - {id: r1, number: "1", from: A, to: B, stops: [s1, s2], frequency: 10, firstBus: "05:00", lastBus: "22:00", type: ordinary}
`,
		},
		{
			name: "bad category",
			doc: `
stops:
  - {id: s1, name: A, nameKn: A, code: A, lat: 12.9, lng: 77.5}
routes:
  - {id: r1, number: "1", from: A, to: B, stops: [s1], frequency: 10, firstBus: "05:00", lastBus: "22:00", type: tram}
`,
		},
		{
			name: "latitude out of range",
			doc: `
stops:
  - {id: s1, name: A, nameKn: A, code: A, lat: 120.0, lng: 77.5}
routes:
  - {id: r1, number: "1", from: A, to: B, stops: [s1], frequency: 10, firstBus: "05:00", lastBus: "22:00", type: ordinary}
`,
		},
		{
			name: "duplicate stop id",
			doc: `
stops:
  - {id: s1, name: A, nameKn: A, code: A, lat: 12.9, lng: 77.5}
  - {id: s1, name: B, nameKn: B, code: B, lat: 12.8, lng: 77.4}
routes:
  - {id: r1, number: "1", from: A, to: B, stops: [s1], frequency: 10, firstBus: "05:00", lastBus: "22:00", type: ordinary}
`,
		},
		{
			name: "route without stops",
			doc: `
stops:
  - {id: s1, name: A, nameKn: A, code: A, lat: 12.9, lng: 77.5}
routes:
  - {id: r1, number: "1", from: A, to: B, stops: [], frequency: 10, firstBus: "05:00", lastBus: "22:00", type: ordinary}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mini.yaml")
	doc := `
stops:
  - {id: s1, name: Alpha, nameKn: ಅ, code: ALP, lat: 12.9, lng: 77.5}
  - {id: s2, name: Beta, nameKn: ಬ, code: BET, lat: 12.95, lng: 77.55}
routes:
  - {id: r1, number: "1A", from: Alpha, to: Beta, stops: [s1, s2], frequency: 10, firstBus: "05:00", lastBus: "22:00", type: vayu}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Stops(), 2)
	assert.Equal(t, CategoryVayu, c.Routes()[0].Category)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCheckBus(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.NoError(t, c.CheckBus(Bus{ID: "b", RouteID: "r1", NextStopID: "stop9"}))
	assert.ErrorIs(t, c.CheckBus(Bus{ID: "b", RouteID: "nope", NextStopID: "stop9"}), ErrNotFound)
	assert.ErrorIs(t, c.CheckBus(Bus{ID: "b", RouteID: "r1", NextStopID: "stop4"}), ErrNotFound)
}

func TestCrowdLevel(t *testing.T) {
	assert.Equal(t, "standingRoom", StandingRoom.String())
	assert.Equal(t, 20, Empty.OccupancyPercent())
	assert.Equal(t, 100, VeryCrowded.OccupancyPercent())
	assert.False(t, CrowdLevel(7).Valid())

	b, err := json.Marshal(struct {
		L CrowdLevel `json:"l"`
	}{Crowded})
	require.NoError(t, err)
	assert.JSONEq(t, `{"l":"crowded"}`, string(b))

	var l CrowdLevel
	require.NoError(t, l.UnmarshalText([]byte("fewSeats")))
	assert.Equal(t, FewSeats, l)
	assert.Error(t, l.UnmarshalText([]byte("packed")))
}

func TestDistanceMeters(t *testing.T) {
	// Majestic to KR Market is a little under 2 km.
	d := DistanceMeters(12.9767, 77.5713, 12.9630, 77.5785)
	assert.InDelta(t, 1700, d, 150)
	assert.Zero(t, DistanceMeters(12.9, 77.5, 12.9, 77.5))

	assert.InDelta(t, 0, BearingDeg(12.0, 77.0, 13.0, 77.0), 0.001)
	assert.InDelta(t, 90, BearingDeg(0, 77.0, 0, 78.0), 0.001)
}
