package mesh

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// outlineTolerance is the Douglas-Peucker tolerance for exported outlines.
const outlineTolerance = 0.05

// FacetsGeoJSON describes a reconstruction in source coordinates (east,
// north): the footprint, one polygon per roof triangle, and the simplified
// outline chains if any. Heights are absolute elevations.
func FacetsGeoJSON(pc *PointCloud, triangles []Triangle, outline [][2]r3.Vector) *geojson.FeatureCollection {
	ref := DefaultReference
	toSource := func(p orb.Point) orb.Point {
		return orb.Point{p[0] + pc.Offset.X + ref.East, p[1] + pc.Offset.Z + ref.North}
	}
	elevation := func(y float64) float64 {
		return y + pc.Offset.Y + ref.Elevation
	}

	fc := geojson.NewFeatureCollection()

	footprint := closeRing(pc.FootprintOrDefault(), toSource)
	f := geojson.NewFeature(orb.Polygon{footprint})
	f.Properties["kind"] = "footprint"
	f.Properties["name"] = pc.Name
	f.Properties["area"] = math.Abs(planar.Area(footprint))
	if pc.Metadata != nil && pc.Metadata.Address != "" {
		f.Properties["address"] = pc.Metadata.Address
	}
	fc.Append(f)

	for i, t := range triangles {
		v := t.Vertices()
		ring := closeRing(orb.Ring{Ground(v[0]), Ground(v[1]), Ground(v[2])}, toSource)
		f := geojson.NewFeature(orb.Polygon{ring})
		f.ID = i
		f.Properties["kind"] = "facet"
		f.Properties["heightMin"] = elevation(math.Min(v[0].Y, math.Min(v[1].Y, v[2].Y)))
		f.Properties["heightMax"] = elevation(math.Max(v[0].Y, math.Max(v[1].Y, v[2].Y)))
		f.Properties["slope"] = t.Plane().Tilt().Degrees()
		f.Properties["area"] = t.Area()
		fc.Append(f)
	}

	for _, chain := range OutlineChains(outline) {
		ls := make(orb.LineString, len(chain))
		for i, p := range chain {
			ls[i] = toSource(Ground(p))
		}
		ls = simplify.DouglasPeucker(outlineTolerance).LineString(ls)
		f := geojson.NewFeature(ls)
		f.Properties["kind"] = "outline"
		fc.Append(f)
	}
	return fc
}

func closeRing(r orb.Ring, transform func(orb.Point) orb.Point) orb.Ring {
	open := openRing(r)
	ring := make(orb.Ring, 0, len(open)+1)
	for _, p := range open {
		ring = append(ring, transform(p))
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return ring
}

// OutlineChains joins boundary edges sharing endpoints into polylines. A
// closed loop repeats its first vertex at the end.
func OutlineChains(edges [][2]r3.Vector) [][]r3.Vector {
	used := make([]bool, len(edges))
	var chains [][]r3.Vector
	for start := range edges {
		if used[start] {
			continue
		}
		used[start] = true
		chain := []r3.Vector{edges[start][0], edges[start][1]}
		for extended := true; extended; {
			extended = false
			tail := chain[len(chain)-1]
			for i, e := range edges {
				if used[i] {
					continue
				}
				var next r3.Vector
				switch {
				case sameVertex(e[0], tail):
					next = e[1]
				case sameVertex(e[1], tail):
					next = e[0]
				default:
					continue
				}
				used[i] = true
				chain = append(chain, next)
				extended = true
				break
			}
		}
		chains = append(chains, chain)
	}
	return chains
}
