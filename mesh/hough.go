package mesh

import (
	"context"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HoughFinder votes in a (slope x, slope z, distance) accumulator. Each
// slope pair fixes a normal direction; every point then spreads a linear
// falloff vote over the distance bins within MaxDistance of its own offset.
// Local maxima above a fraction of the point count become planes.
type HoughFinder struct {
	opts Options
}

// NewHoughFinder returns a finder using opts.Hough and opts.MaxDistance.
func NewHoughFinder(opts Options) *HoughFinder {
	return &HoughFinder{opts: opts.withDefaults()}
}

// lerp maps v from [oldLo, oldHi] onto [newLo, newHi] without clamping.
func lerp(oldLo, oldHi, newLo, newHi, v float64) float64 {
	return newLo + (newHi-newLo)*(v-oldLo)/(oldHi-oldLo)
}

type houghSpace struct {
	cfg   HoughOptions
	votes []float64
}

func newHoughSpace(cfg HoughOptions) *houghSpace {
	return &houghSpace{cfg: cfg, votes: make([]float64, cfg.SlopeBins*cfg.SlopeBins*cfg.DistanceBins)}
}

func (h *houghSpace) index(i0, i1, i2 int) int {
	return (i0*h.cfg.SlopeBins+i1)*h.cfg.DistanceBins + i2
}

func (h *houghSpace) at(i0, i1, i2 int) float64 {
	if i0 < 0 || i1 < 0 || i2 < 0 || i0 >= h.cfg.SlopeBins || i1 >= h.cfg.SlopeBins || i2 >= h.cfg.DistanceBins {
		return 0
	}
	return h.votes[h.index(i0, i1, i2)]
}

func (h *houghSpace) slope(i int) float64 {
	return lerp(0, float64(h.cfg.SlopeBins), h.cfg.MinSlope, h.cfg.MaxSlope, float64(i))
}

func (h *houghSpace) distance(i int) float64 {
	return lerp(0, float64(h.cfg.DistanceBins), h.cfg.MinDistance, h.cfg.MaxDistance, float64(i))
}

func (h *houghSpace) distanceBin(d float64) float64 {
	return lerp(h.cfg.MinDistance, h.cfg.MaxDistance, 0, float64(h.cfg.DistanceBins), d)
}

func (h *houghSpace) normal(i0, i1 int) r3.Vector {
	return r3.Vector{X: h.slope(i0), Y: 1, Z: h.slope(i1)}.Normalize()
}

func (h *houghSpace) isLocalMaximum(i0, i1, i2, radius int) bool {
	v := h.at(i0, i1, i2)
	for j0 := i0 - radius; j0 <= i0+radius; j0++ {
		for j1 := i1 - radius; j1 <= i1+radius; j1++ {
			for j2 := i2 - radius; j2 <= i2+radius; j2++ {
				if h.at(j0, j1, j2) > v {
					return false
				}
			}
		}
	}
	return true
}

// FindPlanes votes with the given points (all when nil).
func (f *HoughFinder) FindPlanes(ctx context.Context, pc *PointCloud, indices []int) ([]ScoredPlane, error) {
	if indices == nil {
		indices = pc.Indices()
	}
	start := time.Now()
	cfg := f.opts.Hough
	h := newHoughSpace(cfg)
	ground := Up.Mul(pc.GroundPoint.Y)
	maxDist := f.opts.MaxDistance
	last := cfg.DistanceBins - 1

	// Every slope pair owns a disjoint run of the accumulator.
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(f.opts))
	for i0 := 0; i0 < cfg.SlopeBins; i0++ {
		for i1 := 0; i1 < cfg.SlopeBins; i1++ {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				n := h.normal(i0, i1)
				for _, i := range indices {
					dist := -n.Dot(pc.Points[i].Sub(ground))
					lo := int(math.Floor(h.distanceBin(dist - maxDist)))
					hi := int(math.Ceil(h.distanceBin(dist + maxDist)))
					if (lo < 0 || lo > last) && (hi < 0 || hi > last) {
						continue
					}
					lo, hi = clampInt(lo, 0, last), clampInt(hi, 0, last)
					for i2 := lo; i2 <= hi; i2++ {
						rel := math.Abs(h.distance(i2)-dist) / maxDist
						if rel < 1 {
							h.votes[h.index(i0, i1, i2)] += 1 - rel
						}
					}
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	threshold := cfg.MinVoteRatio * float64(len(indices))
	var planes []ScoredPlane
	for i0 := 0; i0 < cfg.SlopeBins; i0++ {
		for i1 := 0; i1 < cfg.SlopeBins; i1++ {
			for i2 := 0; i2 < cfg.DistanceBins; i2++ {
				v := h.at(i0, i1, i2)
				if v <= threshold || !h.isLocalMaximum(i0, i1, i2, cfg.MaximaRadius) {
					continue
				}
				n := h.normal(i0, i1)
				onPlane := ground.Sub(n.Mul(h.distance(i2)))
				planes = append(planes, ScoredPlane{Plane: NewPlane(n, onPlane), Score: v})
			}
		}
	}
	sortPlanes(planes)

	f.opts.Logger.Debug("hough",
		zap.Int("points", len(indices)),
		zap.Int("planes", len(planes)),
		zap.Duration("took", time.Since(start)))
	return planes, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
