package mesh

import (
	"sort"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointGridInRange(t *testing.T) {
	pts := []r3.Vector{
		v3(0, 0, 0),
		v3(0.5, 9, 0),
		v3(1.9, 0, 0),
		v3(2.1, 0, 0),
		v3(-3, 0, -3),
	}
	g := NewPointGrid(pts, 2)

	strict := g.InRange(v3(0, 0, 0), 2, true)
	sort.Ints(strict)
	assert.Equal(t, []int{0, 1, 2}, strict, "vertical offset is ignored")

	loose := g.InRange(v3(0, 0, 0), 2, false)
	assert.Contains(t, loose, 3, "loose queries return whole cells")
	assert.NotContains(t, loose, 4)
	assert.Subset(t, loose, strict)
}

func TestPointGridInBound(t *testing.T) {
	pts := []r3.Vector{v3(1, 0, 1), v3(5, 0, 5), v3(9, 0, 9)}
	g := NewPointGrid(pts, 2)

	idx := g.InBound(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{5.5, 5.5}})
	sort.Ints(idx)
	assert.Equal(t, []int{0, 1}, idx)
}

func TestPointGridIndexAndGround(t *testing.T) {
	pts := []r3.Vector{v3(0.5, 3, 0.5), v3(1, 1, 1), v3(1.5, 2, 1.5), v3(7, 0, 7)}
	g := NewPointGrid(pts, 2)

	i, ok := g.IndexOf(v3(1.5, 2, 1.5))
	require.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = g.IndexOf(v3(1.5, 2.5, 1.5))
	assert.False(t, ok)

	h, ok := g.GroundHeight(v3(0.1, 100, 0.1))
	require.True(t, ok)
	assert.Equal(t, 1.0, h)

	_, ok = g.GroundHeight(v3(-5, 0, -5))
	assert.False(t, ok)
}

func TestPointGridCluster(t *testing.T) {
	var pts []r3.Vector
	for i := 0; i < 10; i++ {
		pts = append(pts, v3(float64(i)*0.5, 0, 0))
	}
	for i := 0; i < 4; i++ {
		pts = append(pts, v3(20+float64(i)*0.5, 0, 20))
	}
	pts = append(pts, v3(-30, 0, -30))

	g := NewPointGrid(pts, 1)
	clusters := g.Cluster(0.6, 3)
	require.Len(t, clusters, 2)
	assert.Len(t, clusters[0], 10)
	assert.Len(t, clusters[1], 4)
	assert.Equal(t, 0, clusters[0][0])
}
