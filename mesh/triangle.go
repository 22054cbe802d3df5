package mesh

import (
	"fmt"

	"github.com/golang/geo/r3"
)

const (
	// MinTriangleArea is the area at or below which a triangle is degenerate.
	MinTriangleArea = 0.01
	// splitEpsilon classifies vertices within this distance as lying on a plane.
	splitEpsilon   = 0.01
	vertexEpsilon  = 1e-5
	vertexEpsilon2 = vertexEpsilon * vertexEpsilon
)

// Triangle is a non-degenerate 3D triangle in canonical winding order: the
// cross product (V2-V1)x(V3-V1) points upward, which makes the ground
// projection clockwise.
type Triangle struct {
	V1, V2, V3 r3.Vector
}

// NewTriangle orders the vertices canonically. It does not check for degeneracy.
func NewTriangle(v1, v2, v3 r3.Vector) Triangle {
	if v2.Sub(v1).Cross(v3.Sub(v1)).Y > 0 {
		return Triangle{V1: v1, V2: v2, V3: v3}
	}
	return Triangle{V1: v3, V2: v2, V3: v1}
}

// TryCreateTriangle returns false for repeated vertices or an area of at most MinTriangleArea.
func TryCreateTriangle(v1, v2, v3 r3.Vector) (Triangle, bool) {
	if sameVertex(v1, v2) || sameVertex(v2, v3) || sameVertex(v3, v1) {
		return Triangle{}, false
	}
	t := NewTriangle(v1, v2, v3)
	if t.Area() <= MinTriangleArea {
		return Triangle{}, false
	}
	return t, true
}

func sameVertex(a, b r3.Vector) bool {
	return a.Sub(b).Norm2() < vertexEpsilon2
}

// TrianglesFromIndices builds triangles from an index buffer, skipping
// repeated indices and degenerate faces.
func TrianglesFromIndices(vertices []r3.Vector, indices []int) []Triangle {
	result := make([]Triangle, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		if a == b || b == c || c == a {
			continue
		}
		if t, ok := TryCreateTriangle(vertices[a], vertices[b], vertices[c]); ok {
			result = append(result, t)
		}
	}
	return result
}

// Vertices returns the three corners in winding order.
func (t Triangle) Vertices() [3]r3.Vector {
	return [3]r3.Vector{t.V1, t.V2, t.V3}
}

func (t Triangle) cross() r3.Vector {
	return t.V2.Sub(t.V1).Cross(t.V3.Sub(t.V1))
}

// Normal is the unit normal, oriented upward.
func (t Triangle) Normal() r3.Vector {
	n := t.cross()
	if n.Y < 0 {
		n = n.Mul(-1)
	}
	return n.Normalize()
}

// Plane is the supporting plane through V1.
func (t Triangle) Plane() Plane {
	return NewPlane(t.Normal(), t.V1)
}

// Area is the 3D surface area.
func (t Triangle) Area() float64 {
	return t.cross().Norm() / 2
}

// Centroid is the mean of the vertices.
func (t Triangle) Centroid() r3.Vector {
	return t.V1.Add(t.V2).Add(t.V3).Mul(1.0 / 3.0)
}

// ProjectToGround drops the vertical coordinate.
func (t Triangle) ProjectToGround() Triangle2D {
	return NewTriangle2D(Ground(t.V1), Ground(t.V2), Ground(t.V3))
}

// ContainsXZ reports whether p lies inside the ground projection, edges included.
func (t Triangle) ContainsXZ(p r3.Vector) bool {
	return containsClockwise(t.V1.X, t.V1.Z, t.V2.X, t.V2.Z, t.V3.X, t.V3.Z, p.X, p.Z)
}

// containsClockwise is the edge-sign test for a triangle in canonical winding.
func containsClockwise(x1, y1, x2, y2, x3, y3, px, py float64) bool {
	ax, ay := x1-x2, y1-y2
	bx, by := x3-x1, y3-y1
	cx, cy := x2-x3, y2-y3

	aCrossBP := ax*(py-y2) - ay*(px-x2)
	cCrossAP := cx*(py-y3) - cy*(px-x3)
	bCrossCP := bx*(py-y1) - by*(px-x1)

	return aCrossBP >= 0 && bCrossCP >= 0 && cCrossAP >= 0
}

func (t Triangle) String() string {
	return fmt.Sprintf("Triangle(%v, %v, %v)", t.V1, t.V2, t.V3)
}

// edgeIntersection is the point where segment s-d crosses the plane, given
// the signed distances of its endpoints.
func edgeIntersection(s, d r3.Vector, ds, dd float64) r3.Vector {
	f := ds / (ds - dd)
	return s.Add(d.Sub(s).Mul(f))
}

func appendIfValid(dst []Triangle, a, b, c r3.Vector) []Triangle {
	if t, ok := TryCreateTriangle(a, b, c); ok {
		dst = append(dst, t)
	}
	return dst
}

// Split cuts the triangle by a plane and returns the pieces above and below it.
// Vertices within splitEpsilon of the plane count as on it. Degenerate pieces
// are dropped.
func (t Triangle) Split(p Plane) (above, below []Triangle) {
	verts := t.Vertices()
	var dist [3]float64
	var on, up, down []int
	for i, v := range verts {
		d := p.SignedDistance(v)
		dist[i] = d
		switch {
		case d <= splitEpsilon && d >= -splitEpsilon:
			on = append(on, i)
		case d > 0:
			up = append(up, i)
		default:
			down = append(down, i)
		}
	}

	switch {
	case len(down) == 0:
		return []Triangle{t}, nil
	case len(up) == 0:
		return nil, []Triangle{t}
	case len(on) == 0:
		// One vertex alone on one side, two on the other.
		lone, pair := up, down
		if len(up) == 2 {
			lone, pair = down, up
		}
		s, d1, d2 := verts[lone[0]], verts[pair[0]], verts[pair[1]]
		i1 := edgeIntersection(s, d1, dist[lone[0]], dist[pair[0]])
		i2 := edgeIntersection(s, d2, dist[lone[0]], dist[pair[1]])

		var single, double []Triangle
		single = appendIfValid(single, s, i1, i2)
		double = appendIfValid(double, d1, d2, i1)
		double = appendIfValid(double, d2, i1, i2)
		if len(up) == 1 {
			return single, double
		}
		return double, single
	case len(on) == 1:
		vOn, vUp, vDown := verts[on[0]], verts[up[0]], verts[down[0]]
		x := edgeIntersection(vUp, vDown, dist[up[0]], dist[down[0]])
		above = appendIfValid(above, vUp, vOn, x)
		below = appendIfValid(below, vDown, vOn, x)
		return above, below
	}
	return nil, nil
}

// SplitMesh splits every triangle and concatenates the halves.
func SplitMesh(triangles []Triangle, p Plane) (above, below []Triangle) {
	for _, t := range triangles {
		a, b := t.Split(p)
		above = append(above, a...)
		below = append(below, b...)
	}
	return above, below
}

// CutMesh keeps the part of the mesh above (keepAbove) or below the plane.
func CutMesh(triangles []Triangle, p Plane, keepAbove bool) []Triangle {
	var result []Triangle
	for _, t := range triangles {
		a, b := t.Split(p)
		if keepAbove {
			result = append(result, a...)
		} else {
			result = append(result, b...)
		}
	}
	return result
}

// MeshArea sums the 3D area of the triangles.
func MeshArea(triangles []Triangle) float64 {
	var area float64
	for _, t := range triangles {
		area += t.Area()
	}
	return area
}

// GroundArea sums the area of the ground projections.
func GroundArea(triangles []Triangle) float64 {
	var area float64
	for _, t := range triangles {
		area += t.ProjectToGround().Area()
	}
	return area
}
