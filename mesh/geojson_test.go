package mesh

import (
	"encoding/json"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacetsGeoJSON(t *testing.T) {
	a, _ := gablePlanes()
	pc := testCloud(t, samplePlanes(10, 1, a), square(10))
	pc.Offset = r3.Vector{X: 2, Y: 1, Z: -3}
	pc.Metadata = &BuildingMetadata{Address: "Marktplatz 1"}
	triangles := footprintOnPlane(t, square(10), a)

	fc := FacetsGeoJSON(pc, triangles, nil)
	require.Len(t, fc.Features, 1+len(triangles))

	footprint := fc.Features[0]
	assert.Equal(t, "footprint", footprint.Properties["kind"])
	assert.Equal(t, "Marktplatz 1", footprint.Properties["address"])
	assert.InDelta(t, 100, footprint.Properties["area"], 1e-3)

	poly, ok := footprint.Geometry.(orb.Polygon)
	require.True(t, ok, "footprint geometry is %T", footprint.Geometry)
	ring := poly[0]
	require.Len(t, ring, 5)
	assert.Equal(t, ring[0], ring[len(ring)-1], "ring must be closed")
	want := orb.Point{DefaultReference.East + 2, DefaultReference.North - 3}
	assert.InDelta(t, want[0], ring[0][0], 1e-9)
	assert.InDelta(t, want[1], ring[0][1], 1e-9)

	for i, f := range fc.Features[1:] {
		assert.Equal(t, "facet", f.Properties["kind"])
		assert.Equal(t, i, f.ID)
		lo := f.Properties["heightMin"].(float64)
		hi := f.Properties["heightMax"].(float64)
		// y = 3 + 0.5x over x in [0, 10], shifted by the offset and reference.
		base := 1 + DefaultReference.Elevation
		assert.GreaterOrEqual(t, lo, base+3-1e-9)
		assert.LessOrEqual(t, hi, base+8+1e-9)
		assert.InDelta(t, a.Tilt().Degrees(), f.Properties["slope"], 1e-9)
	}

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)
}

func TestFacetsGeoJSON_Outline(t *testing.T) {
	pc := testCloud(t, samplePlanes(4, 1, NewPlane(Up, r3.Vector{})), square(4))
	outline := [][2]r3.Vector{
		{{X: 0, Z: 0}, {X: 1, Z: 0.01}},
		{{X: 1, Z: 0.01}, {X: 2, Z: 0}},
		{{X: 2, Z: 0}, {X: 2, Z: 2}},
	}

	fc := FacetsGeoJSON(pc, nil, outline)
	require.Len(t, fc.Features, 2)
	f := fc.Features[1]
	assert.Equal(t, "outline", f.Properties["kind"])
	ls, ok := f.Geometry.(orb.LineString)
	require.True(t, ok)
	// The near-collinear middle vertex is simplified away.
	assert.Len(t, ls, 3)
}

func TestOutlineChains(t *testing.T) {
	p := func(x, z float64) r3.Vector { return r3.Vector{X: x, Z: z} }

	t.Run("closed loop", func(t *testing.T) {
		edges := [][2]r3.Vector{
			{p(0, 0), p(1, 0)},
			{p(1, 1), p(0, 1)},
			{p(1, 0), p(1, 1)},
			{p(0, 0), p(0, 1)},
		}
		chains := OutlineChains(edges)
		require.Len(t, chains, 1)
		chain := chains[0]
		assert.Len(t, chain, 5)
		assert.Equal(t, chain[0], chain[len(chain)-1])
	})

	t.Run("disjoint pieces", func(t *testing.T) {
		edges := [][2]r3.Vector{
			{p(0, 0), p(1, 0)},
			{p(5, 5), p(6, 5)},
			{p(1, 0), p(2, 0)},
		}
		chains := OutlineChains(edges)
		require.Len(t, chains, 2)
		assert.Equal(t, []r3.Vector{p(0, 0), p(1, 0), p(2, 0)}, chains[0])
		assert.Equal(t, []r3.Vector{p(5, 5), p(6, 5)}, chains[1])
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, OutlineChains(nil))
	})
}
