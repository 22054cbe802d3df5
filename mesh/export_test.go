package mesh

import (
	"bytes"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func exportTriangles() []Triangle {
	return []Triangle{
		NewTriangle(r3.Vector{X: 0, Y: 2, Z: 0}, r3.Vector{X: 5, Y: 2, Z: 0}, r3.Vector{X: 0, Y: 2, Z: 5}),
		NewTriangle(r3.Vector{X: 5, Y: 2, Z: 0}, r3.Vector{X: 5, Y: 2, Z: 5}, r3.Vector{X: 0, Y: 2, Z: 5}),
	}
}

func TestNewIndexedMesh(t *testing.T) {
	tris := exportTriangles()
	m := NewIndexedMesh(tris, false)

	if got := m.TriangleCount(); got != 2 {
		t.Fatalf("TriangleCount() = %d, want 2", got)
	}
	if len(m.Vertices) != 6 || len(m.Normals) != 6 || len(m.UVs) != 6 {
		t.Fatalf("buffer sizes = %d/%d/%d, want 6 each", len(m.Vertices), len(m.Normals), len(m.UVs))
	}
	wantIdx := []int{0, 1, 2, 3, 4, 5}
	if diff := cmp.Diff(wantIdx, m.Indices); diff != "" {
		t.Errorf("Indices mismatch (-want +got):\n%s", diff)
	}
	for i, n := range m.Normals {
		if diff := cmp.Diff(Up, n, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
			t.Errorf("normal %d mismatch (-want +got):\n%s", i, diff)
		}
	}

	// UVs are plane coordinates scaled to one repeat per five units, so the
	// first triangle's UV triangle has legs of length one.
	a, b, c := m.UVs[0], m.UVs[1], m.UVs[2]
	area := NewTriangle2D(a, b, c).Area()
	if diff := cmp.Diff(0.5, area, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("UV area mismatch (-want +got):\n%s", diff)
	}
}

func TestNewIndexedMeshTwoSided(t *testing.T) {
	tris := exportTriangles()
	m := NewIndexedMesh(tris, true)

	if got := m.TriangleCount(); got != 4 {
		t.Fatalf("TriangleCount() = %d, want 4", got)
	}
	front := tris[0].Vertices()
	back := []r3.Vector{m.Vertices[6], m.Vertices[7], m.Vertices[8]}
	if diff := cmp.Diff([]r3.Vector{front[2], front[1], front[0]}, back); diff != "" {
		t.Errorf("back face winding (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Up.Mul(-1), m.Normals[6], cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("back face normal (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(m.UVs[0], m.UVs[8], cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("back face shares texture coordinates (-want +got):\n%s", diff)
	}
}

func TestWriteOBJ(t *testing.T) {
	m := NewIndexedMesh(exportTriangles()[:1], false)
	var buf bytes.Buffer
	if err := WriteOBJ(&buf, "roof", m, r3.Vector{X: 100, Y: 10, Z: -20}); err != nil {
		t.Fatalf("WriteOBJ() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	count := map[string]int{}
	for _, l := range lines {
		count[strings.Fields(l)[0]]++
	}
	want := map[string]int{"g": 1, "v": 3, "vt": 3, "vn": 3, "f": 1}
	if diff := cmp.Diff(want, count); diff != "" {
		t.Errorf("record counts (-want +got):\n%s", diff)
	}
	if lines[0] != "g roof" {
		t.Errorf("first line = %q, want group name", lines[0])
	}
	// Canonical winding starts the first triangle at (0, 2, 5).
	if lines[1] != "v 100 12 -15" {
		t.Errorf("first vertex = %q, want offset applied", lines[1])
	}
	if last := lines[len(lines)-1]; last != "f 1/1/1 2/2/2 3/3/3" {
		t.Errorf("face = %q", last)
	}
}

func TestWriteOBJEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOBJ(&buf, "nothing", NewIndexedMesh(nil, true), r3.Vector{}); err != nil {
		t.Fatalf("WriteOBJ() error = %v", err)
	}
	if got := buf.String(); got != "g nothing\n" {
		t.Errorf("output = %q", got)
	}
}

func TestUVScale(t *testing.T) {
	p := NewPlane(Up, r3.Vector{})
	coords := NewPlaneCoordinates(p)
	m := &IndexedMesh{}
	m.add([3]r3.Vector{{}, {X: 5}, {Z: 5}}, Up, coords)

	if diff := cmp.Diff(1.0, planarDistance2(m.UVs[0], m.UVs[1]), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("five units map to one repeat (-want +got):\n%s", diff)
	}
}
