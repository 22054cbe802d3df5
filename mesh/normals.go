package mesh

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// minDeterminant is the cofactor magnitude below which the closed-form fit
// is considered unstable.
const minDeterminant = 1e-12

// EnsureNormals estimates per-point normals unless they are already present.
func (pc *PointCloud) EnsureNormals(opts NormalOptions) {
	if pc.Normals != nil {
		return
	}
	pc.Normals = EstimateNormals(pc.Grid(), opts)
}

// EstimateNormals fits a plane through the nearest neighbours of each
// indexed point. Points with fewer than three neighbours get a zero normal.
// Normals are oriented upward.
func EstimateNormals(g *PointGrid, opts NormalOptions) []r3.Vector {
	normals := make([]r3.Vector, g.Len())
	type neighbour struct {
		index int
		dist  float64
	}

	for i := 0; i < g.Len(); i++ {
		p := g.Point(i)
		var near []neighbour
		for _, j := range g.InRange(p, opts.Radius, true) {
			if j == i {
				continue
			}
			near = append(near, neighbour{index: j, dist: g.Point(j).Sub(p).Norm()})
		}
		if len(near) < 3 {
			continue
		}
		sort.SliceStable(near, func(a, b int) bool { return near[a].dist < near[b].dist })
		if len(near) > opts.Neighbours {
			near = near[:opts.Neighbours]
		}

		pts := make([]r3.Vector, len(near))
		for k, n := range near {
			pts[k] = g.Point(n.index)
		}
		n := FitNormal(pts)
		if n.Y < 0 {
			n = n.Mul(-1)
		}
		normals[i] = n
	}
	return normals
}

// FitNormal returns the unit normal of the least-squares plane through pts,
// or the zero vector for fewer than three points.
func FitNormal(pts []r3.Vector) r3.Vector {
	if len(pts) < 3 {
		return r3.Vector{}
	}
	var centroid r3.Vector
	for _, p := range pts {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Mul(1 / float64(len(pts)))

	var xx, xy, xz, yy, yz, zz float64
	for _, p := range pts {
		r := p.Sub(centroid)
		xx += r.X * r.X
		xy += r.X * r.Y
		xz += r.X * r.Z
		yy += r.Y * r.Y
		yz += r.Y * r.Z
		zz += r.Z * r.Z
	}

	detX := yy*zz - yz*yz
	detY := xx*zz - xz*xz
	detZ := xx*yy - xy*xy
	detMax := math.Max(detX, math.Max(detY, detZ))
	if detMax <= minDeterminant {
		return eigenNormal(xx, xy, xz, yy, yz, zz)
	}

	var n r3.Vector
	switch detMax {
	case detX:
		n = r3.Vector{X: 1, Y: (xz*yz - xy*zz) / detX, Z: (xy*yz - xz*yy) / detX}
	case detY:
		n = r3.Vector{X: (yz*xz - xy*zz) / detY, Y: 1, Z: (xy*xz - yz*xx) / detY}
	default:
		n = r3.Vector{X: (yz*xy - xz*yy) / detZ, Y: (xz*xy - yz*xx) / detZ, Z: 1}
	}
	return n.Normalize()
}

// eigenNormal is the eigenvector of the scatter matrix with the smallest
// eigenvalue. It handles the near-collinear neighbourhoods where every
// cofactor vanishes.
func eigenNormal(xx, xy, xz, yy, yz, zz float64) r3.Vector {
	scatter := mat.NewSymDense(3, []float64{
		xx, xy, xz,
		xy, yy, yz,
		xz, yz, zz,
	})
	var eig mat.EigenSym
	if !eig.Factorize(scatter, true) {
		return r3.Vector{}
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	// Eigenvalues come back in ascending order.
	n := r3.Vector{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)}
	return n.Normalize()
}
