package mesh

import (
	"context"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Result is one reconstruction of one building.
type Result struct {
	RunID       string         `json:"runId"`
	Name        string         `json:"name"`
	Mode        Mode           `json:"mode"`
	Finder      FinderKind     `json:"finder"`
	Cleaned     bool           `json:"cleaned"`
	Triangles   []Triangle     `json:"-"`
	Planes      []ScoredPlane  `json:"planes"`
	UsedPlanes  []Plane        `json:"usedPlanes"`
	Attachments int            `json:"attachments"`
	Score       float64        `json:"score"`
	Outline     [][2]r3.Vector `json:"-"`
	Duration    time.Duration  `json:"duration"`
	Cloud       *PointCloud    `json:"-"`
}

// Area is the total surface area of the roof triangles.
func (r *Result) Area() float64 {
	return MeshArea(r.Triangles)
}

// Reconstruct detects planes if needed, builds the mesh with the configured
// strategy and optionally cleans it. A building whose points yield no roof
// planes gets an empty mesh. Layout mode skips plane detection.
func Reconstruct(ctx context.Context, pc *PointCloud, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	start := time.Now()
	log := opts.Logger.With(zap.String("building", pc.Name))

	if opts.Mode != ModeLayout {
		pc.EnsureNormals(opts.Normals)
		if err := pc.EnsurePlanes(ctx, opts); err != nil {
			return nil, err
		}
	}

	built, err := Build(ctx, pc, opts)
	if err != nil {
		return nil, err
	}

	triangles := built.Triangles
	if len(triangles) == 0 {
		log.Warn("empty mesh", zap.Int("planes", len(pc.Planes)))
	}
	if opts.Clean && (opts.Mode == ModeCutoff || opts.Mode == ModeAttachments) {
		cleanStart := time.Now()
		before := len(triangles)
		triangles = CleanMesh(triangles, opts.Cleaner)
		log.Debug("mesh cleaned",
			zap.Int("before", before),
			zap.Int("after", len(triangles)),
			zap.Duration("took", time.Since(cleanStart)))
	}

	result := &Result{
		RunID:       uuid.NewString(),
		Name:        pc.Name,
		Mode:        opts.Mode,
		Finder:      opts.Finder,
		Cleaned:     opts.Clean,
		Triangles:   triangles,
		Planes:      pc.Planes,
		UsedPlanes:  built.UsedPlanes,
		Attachments: built.Attachments,
		Score:       built.Score,
		Outline:     built.Outline,
		Duration:    time.Since(start),
		Cloud:       pc,
	}
	log.Info("reconstructed",
		zap.String("run", result.RunID),
		zap.String("mode", string(result.Mode)),
		zap.Int("triangles", len(result.Triangles)),
		zap.Int("planes", len(result.UsedPlanes)),
		zap.Int("attachments", result.Attachments),
		zap.Float64("score", result.Score),
		zap.Duration("took", result.Duration))
	return result, nil
}
