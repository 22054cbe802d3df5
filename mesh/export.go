package mesh

import (
	"bufio"
	"fmt"
	"io"

	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
)

// uvScale maps plane coordinates to texture coordinates: one texture repeat
// per five units.
const uvScale = 1.0 / 5

// IndexedMesh is a triangle soup flattened into vertex buffers. Vertices are
// not shared between triangles, so every vertex carries its face normal.
type IndexedMesh struct {
	Vertices []r3.Vector
	Normals  []r3.Vector
	UVs      []orb.Point
	Indices  []int
}

// NewIndexedMesh flattens triangles. TwoSided appends a second copy of every
// triangle with reversed winding and flipped normal.
func NewIndexedMesh(triangles []Triangle, twoSided bool) *IndexedMesh {
	n := len(triangles) * 3
	if twoSided {
		n *= 2
	}
	m := &IndexedMesh{
		Vertices: make([]r3.Vector, 0, n),
		Normals:  make([]r3.Vector, 0, n),
		UVs:      make([]orb.Point, 0, n),
		Indices:  make([]int, 0, n),
	}
	for _, t := range triangles {
		m.add(t.Vertices(), t.Normal(), NewPlaneCoordinates(t.Plane()))
	}
	if twoSided {
		for _, t := range triangles {
			v := t.Vertices()
			m.add([3]r3.Vector{v[2], v[1], v[0]}, t.Normal().Mul(-1), NewPlaneCoordinates(t.Plane()))
		}
	}
	return m
}

func (m *IndexedMesh) add(v [3]r3.Vector, normal r3.Vector, coords PlaneCoordinates) {
	for _, p := range v {
		uv := coords.ToPlane(p)
		m.Indices = append(m.Indices, len(m.Vertices))
		m.Vertices = append(m.Vertices, p)
		m.Normals = append(m.Normals, normal)
		m.UVs = append(m.UVs, orb.Point{uv[0] * uvScale, uv[1] * uvScale})
	}
}

// TriangleCount is the number of faces.
func (m *IndexedMesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// WriteOBJ writes m as a Wavefront OBJ group named name, adding offset back
// to every vertex. Face indices are 1-based and shared by position, texture
// coordinate and normal.
func WriteOBJ(w io.Writer, name string, m *IndexedMesh, offset r3.Vector) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "g %s\n", name)
	for _, v := range m.Vertices {
		v = v.Add(offset)
		fmt.Fprintf(bw, "v %g %g %g\n", v.X, v.Y, v.Z)
	}
	for _, uv := range m.UVs {
		fmt.Fprintf(bw, "vt %g %g\n", uv[0], uv[1])
	}
	for _, n := range m.Normals {
		fmt.Fprintf(bw, "vn %g %g %g\n", n.X, n.Y, n.Z)
	}
	for f := 0; f+2 < len(m.Indices); f += 3 {
		a, b, c := m.Indices[f]+1, m.Indices[f+1]+1, m.Indices[f+2]+1
		fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c)
	}
	return bw.Flush()
}
