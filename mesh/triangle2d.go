package mesh

import (
	"math"

	"github.com/paulmach/orb"
)

const minPieceArea = 1e-9

// Triangle2D is a ground-plane triangle in the same clockwise winding as a
// projected Triangle.
type Triangle2D struct {
	V1, V2, V3 orb.Point
}

func cross2(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// NewTriangle2D orders the vertices canonically.
func NewTriangle2D(v1, v2, v3 orb.Point) Triangle2D {
	if cross2(v1, v2, v3) < 0 {
		return Triangle2D{V1: v1, V2: v2, V3: v3}
	}
	return Triangle2D{V1: v3, V2: v2, V3: v1}
}

// TryCreateTriangle2D rejects repeated or collinear vertices.
func TryCreateTriangle2D(v1, v2, v3 orb.Point) (Triangle2D, bool) {
	if v1.Equal(v2) || v2.Equal(v3) || v3.Equal(v1) {
		return Triangle2D{}, false
	}
	t := NewTriangle2D(v1, v2, v3)
	if t.Area() <= minPieceArea {
		return Triangle2D{}, false
	}
	return t, true
}

// Vertices returns the corners in winding order.
func (t Triangle2D) Vertices() [3]orb.Point {
	return [3]orb.Point{t.V1, t.V2, t.V3}
}

// Area is the unsigned area.
func (t Triangle2D) Area() float64 {
	return math.Abs(cross2(t.V1, t.V2, t.V3)) / 2
}

// Centroid is the mean of the vertices.
func (t Triangle2D) Centroid() orb.Point {
	return orb.Point{
		(t.V1[0] + t.V2[0] + t.V3[0]) / 3,
		(t.V1[1] + t.V2[1] + t.V3[1]) / 3,
	}
}

// Contains reports whether p is inside the triangle, edges included.
func (t Triangle2D) Contains(p orb.Point) bool {
	return containsClockwise(t.V1[0], t.V1[1], t.V2[0], t.V2[1], t.V3[0], t.V3[1], p[0], p[1])
}

// Ring returns the closed boundary.
func (t Triangle2D) Ring() orb.Ring {
	return orb.Ring{t.V1, t.V2, t.V3, t.V1}
}

// Bound is the axis-aligned bounding box.
func (t Triangle2D) Bound() orb.Bound {
	return orb.MultiPoint{t.V1, t.V2, t.V3}.Bound()
}

// ProjectToPlane lifts the triangle vertically onto a plane. It fails for
// vertical planes or when the lifted triangle is degenerate.
func (t Triangle2D) ProjectToPlane(p Plane) (Triangle, bool) {
	var v [3]float64
	for i, g := range t.Vertices() {
		y, ok := p.HeightAt(g)
		if !ok {
			return Triangle{}, false
		}
		v[i] = y
	}
	return TryCreateTriangle(Lift(t.V1, v[0]), Lift(t.V2, v[1]), Lift(t.V3, v[2]))
}

// Intersects reports whether the interiors of the two triangles overlap.
func (t Triangle2D) Intersects(o Triangle2D) bool {
	return !separated(t.Vertices(), o.Vertices()) && !separated(o.Vertices(), t.Vertices())
}

// separated looks for an edge of a whose line has all of b on its outer side.
func separated(a, b [3]orb.Point) bool {
	for i := 0; i < 3; i++ {
		p, q, r := a[i], a[(i+1)%3], a[(i+2)%3]
		inside := cross2(p, q, r)
		outside := true
		for _, v := range b {
			if cross2(p, q, v)*inside > minPieceArea {
				outside = false
				break
			}
		}
		if outside {
			return true
		}
	}
	return false
}

// Without returns the part of t outside o as a set of triangles. Disjoint
// triangles return t unchanged, a triangle covered by o returns nothing.
//
// The subject is split by each edge line of o in turn. The piece on the outer
// side of an edge is part of the difference, the inner piece carries on to the
// next edge. Since o is convex the inner piece left at the end is t ∩ o.
func (t Triangle2D) Without(o Triangle2D) []Triangle2D {
	if !t.Intersects(o) {
		return []Triangle2D{t}
	}

	subject := []orb.Point{t.V1, t.V2, t.V3}
	clip := o.Vertices()
	var pieces [][]orb.Point
	for i := 0; i < 3 && len(subject) >= 3; i++ {
		a, b, c := clip[i], clip[(i+1)%3], clip[(i+2)%3]
		inSign := math.Copysign(1, cross2(a, b, c))
		side := func(p orb.Point) float64 { return inSign * cross2(a, b, p) }

		in, out := clipConvex(subject, side)
		if len(out) >= 3 {
			pieces = append(pieces, out)
		}
		subject = in
	}

	var result []Triangle2D
	for _, poly := range pieces {
		for k := 1; k+1 < len(poly); k++ {
			if tri, ok := TryCreateTriangle2D(poly[0], poly[k], poly[k+1]); ok {
				result = append(result, tri)
			}
		}
	}
	return result
}

// clipConvex splits a convex polygon by the line side(p) = 0 into the parts
// with side >= 0 and side <= 0.
func clipConvex(poly []orb.Point, side func(orb.Point) float64) (in, out []orb.Point) {
	n := len(poly)
	for i := 0; i < n; i++ {
		p, q := poly[i], poly[(i+1)%n]
		sp, sq := side(p), side(q)
		if sp >= 0 {
			in = append(in, p)
		}
		if sp <= 0 {
			out = append(out, p)
		}
		if (sp > 0 && sq < 0) || (sp < 0 && sq > 0) {
			f := sp / (sp - sq)
			x := orb.Point{p[0] + (q[0]-p[0])*f, p[1] + (q[1]-p[1])*f}
			in = append(in, x)
			out = append(out, x)
		}
	}
	return in, out
}
