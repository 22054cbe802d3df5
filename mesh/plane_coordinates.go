package mesh

import (
	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
)

// PlaneCoordinates is an orthonormal 2D frame on a plane. Up runs along the
// plane's horizontal contour, Right down its slope.
type PlaneCoordinates struct {
	Plane Plane
	Pivot r3.Vector
	Up    r3.Vector
	Right r3.Vector
}

// NewPlaneCoordinates builds the frame for p. Horizontal planes use the
// world z axis for Up.
func NewPlaneCoordinates(p Plane) PlaneCoordinates {
	n := p.Normal
	up := n.Cross(n.Sub(Up.Mul(n.Y)))
	if up.Norm2() < parallelEpsilon {
		up = n.Cross(r3.Vector{X: 1})
	}
	up = up.Normalize()
	if up.Y < 0 {
		up = up.Mul(-1)
	}
	return PlaneCoordinates{
		Plane: p,
		Pivot: p.Point(),
		Up:    up,
		Right: n.Cross(up).Normalize(),
	}
}

// ToPlane projects v onto the plane and returns its frame coordinates.
func (c PlaneCoordinates) ToPlane(v r3.Vector) orb.Point {
	local := c.Plane.Project(v).Sub(c.Pivot)
	return orb.Point{c.Up.Dot(local), c.Right.Dot(local)}
}

// ToWorld maps frame coordinates back onto the plane.
func (c PlaneCoordinates) ToWorld(p orb.Point) r3.Vector {
	return c.Pivot.Add(c.Up.Mul(p[0])).Add(c.Right.Mul(p[1]))
}
