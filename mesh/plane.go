package mesh

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/paulmach/orb"
)

// Up is the vertical axis. All ground projections drop the Y component.
var Up = r3.Vector{X: 0, Y: 1, Z: 0}

const parallelEpsilon = 1e-9

// Ground projects a 3D point onto the ground plane.
func Ground(p r3.Vector) orb.Point {
	return orb.Point{p.X, p.Z}
}

// Lift places a ground point at the given height.
func Lift(p orb.Point, y float64) r3.Vector {
	return r3.Vector{X: p[0], Y: y, Z: p[1]}
}

// Plane is n·p + D = 0 with a unit normal.
type Plane struct {
	Normal r3.Vector `json:"normal"`
	D      float64   `json:"d"`
}

// NewPlane builds the plane with the given normal through point. The normal
// is normalized; a zero normal yields the zero plane.
func NewPlane(normal, point r3.Vector) Plane {
	n := normal.Normalize()
	return Plane{Normal: n, D: -n.Dot(point)}
}

// NewPlaneFromPoints builds the plane through three points, oriented upward.
func NewPlaneFromPoints(a, b, c r3.Vector) Plane {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Y < 0 {
		n = n.Mul(-1)
	}
	return NewPlane(n, a)
}

// IsZero reports whether the plane has no usable normal.
func (p Plane) IsZero() bool {
	return p.Normal.Norm2() == 0
}

// SignedDistance is positive above the plane (on the normal side).
func (p Plane) SignedDistance(v r3.Vector) float64 {
	return p.Normal.Dot(v) + p.D
}

// Point returns the point of the plane closest to the origin.
func (p Plane) Point() r3.Vector {
	return p.Normal.Mul(-p.D)
}

// Project drops v orthogonally onto the plane.
func (p Plane) Project(v r3.Vector) r3.Vector {
	return v.Sub(p.Normal.Mul(p.SignedDistance(v)))
}

// Flipped returns the same plane with the opposite orientation.
func (p Plane) Flipped() Plane {
	return Plane{Normal: p.Normal.Mul(-1), D: -p.D}
}

// Canonical orients the plane so its normal points upward.
func (p Plane) Canonical() Plane {
	if p.Normal.Y < 0 {
		return p.Flipped()
	}
	return p
}

// Angle is the angle between the two normals.
func (p Plane) Angle(o Plane) s1.Angle {
	return p.Normal.Angle(o.Normal)
}

// Tilt is the angle between the normal and the vertical axis.
func (p Plane) Tilt() s1.Angle {
	return p.Normal.Angle(Up)
}

// Slope is the roof pitch in degrees: 0 for flat, 90 for a wall.
func (p Plane) Slope() float64 {
	c := p.Canonical()
	return c.Tilt().Degrees()
}

// RayIntersect returns the point where the line origin + t·dir meets the plane.
func (p Plane) RayIntersect(origin, dir r3.Vector) (r3.Vector, bool) {
	denom := p.Normal.Dot(dir)
	if math.Abs(denom) < parallelEpsilon {
		return r3.Vector{}, false
	}
	t := -p.SignedDistance(origin) / denom
	return origin.Add(dir.Mul(t)), true
}

// HeightAt returns the plane height above the ground point g.
func (p Plane) HeightAt(g orb.Point) (float64, bool) {
	v, ok := p.RayIntersect(Lift(g, 0), Up)
	if !ok {
		return 0, false
	}
	return v.Y, true
}

// Intersect returns the line shared by two planes as a point and unit direction.
func (p Plane) Intersect(o Plane) (point, dir r3.Vector, ok bool) {
	dir = p.Normal.Cross(o.Normal)
	if dir.Norm2() < parallelEpsilon {
		return r3.Vector{}, r3.Vector{}, false
	}
	dir = dir.Normalize()

	onP, ok := p.RayIntersect(r3.Vector{}, Up)
	if !ok {
		// Vertical plane; start from its closest point instead.
		onP = p.Point()
	}
	point, ok = o.RayIntersect(onP, p.Normal.Cross(dir))
	if !ok {
		return r3.Vector{}, r3.Vector{}, false
	}
	return point, dir, true
}

// Similarity holds the thresholds under which two planes are considered the same facet.
type Similarity struct {
	MaxAngle    float64 `yaml:"maxAngle" json:"maxAngle"`       // degrees between normals
	MaxDistance float64 `yaml:"maxDistance" json:"maxDistance"` // difference of plane offsets
}

// DefaultSimilarity is 20 degrees and 2 units.
func DefaultSimilarity() Similarity {
	return Similarity{MaxAngle: 20, MaxDistance: 2}
}

// Similar reports whether a and b are near-duplicates. It is reflexive but not transitive.
func (s Similarity) Similar(a, b Plane) bool {
	return a.Angle(b).Degrees() < s.MaxAngle && math.Abs(a.D-b.D) < s.MaxDistance
}
