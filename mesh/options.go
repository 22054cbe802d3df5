package mesh

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
)

// FinderKind selects the plane detection strategy.
type FinderKind string

const (
	FinderRansac FinderKind = "ransac"
	FinderHough  FinderKind = "hough"
)

// ParseFinder accepts a finder name in any case.
func ParseFinder(s string) (FinderKind, error) {
	switch FinderKind(strings.ToLower(strings.TrimSpace(s))) {
	case FinderRansac:
		return FinderRansac, nil
	case FinderHough:
		return FinderHough, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFinder, s)
}

// Mode selects the mesh construction strategy.
type Mode string

const (
	ModeCutoff       Mode = "cutoff"
	ModeAttachments  Mode = "attachments"
	ModePermutations Mode = "permutations"
	ModeLayout       Mode = "layout"
	ModeFromPoints   Mode = "frompoints"
)

// Modes lists every construction mode.
var Modes = []Mode{ModeCutoff, ModeAttachments, ModePermutations, ModeLayout, ModeFromPoints}

// ParseMode accepts a mode name in any case; "from-points" is also understood.
func ParseMode(s string) (Mode, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "")
	for _, m := range Modes {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// NormalOptions controls per-point normal estimation.
type NormalOptions struct {
	Neighbours int     `yaml:"neighbours" json:"neighbours"`
	Radius     float64 `yaml:"radius" json:"radius"`
}

// RansacOptions controls the sampling plane finder.
type RansacOptions struct {
	Samples int `yaml:"samples" json:"samples"`
}

// HoughOptions describes the Hough accumulator. Slopes span the normal's x
// and z components relative to its y component; distances are measured
// relative to the ground point.
type HoughOptions struct {
	SlopeBins    int     `yaml:"slopeBins" json:"slopeBins"`
	DistanceBins int     `yaml:"distanceBins" json:"distanceBins"`
	MinSlope     float64 `yaml:"minSlope" json:"minSlope"`
	MaxSlope     float64 `yaml:"maxSlope" json:"maxSlope"`
	MinDistance  float64 `yaml:"minDistance" json:"minDistance"`
	MaxDistance  float64 `yaml:"maxDistance" json:"maxDistance"`
	MinVoteRatio float64 `yaml:"minVoteRatio" json:"minVoteRatio"`
	MaximaRadius int     `yaml:"maximaRadius" json:"maximaRadius"`
}

// FilterOptions controls removal of ground and wall planes.
type FilterOptions struct {
	GroundDistance float64 `yaml:"groundDistance" json:"groundDistance"`
	MaxGroundTilt  float64 `yaml:"maxGroundTilt" json:"maxGroundTilt"` // degrees
	MinWallAngle   float64 `yaml:"minWallAngle" json:"minWallAngle"`   // degrees between normal and horizontal
}

// AttachmentOptions controls the search for dormers and extensions.
type AttachmentOptions struct {
	MinPlaneScore float64 `yaml:"minPlaneScore" json:"minPlaneScore"`
	MinMeshScore  float64 `yaml:"minMeshScore" json:"minMeshScore"`
	MinDensity    float64 `yaml:"minDensity" json:"minDensity"` // points per unit area
	// MaxIterations bounds the attachment rounds per base plane. Without it
	// the search would only stop once a round accepts nothing.
	MaxIterations int `yaml:"maxIterations" json:"maxIterations"`
}

// CleanerOptions controls mesh resampling.
type CleanerOptions struct {
	Spacing       float64 `yaml:"spacing" json:"spacing"`
	MergeDistance float64 `yaml:"mergeDistance" json:"mergeDistance"`
	MaxTilt       float64 `yaml:"maxTilt" json:"maxTilt"` // degrees
}

// Options configures a reconstruction run.
type Options struct {
	Finder          FinderKind        `yaml:"finder" json:"finder"`
	Mode            Mode              `yaml:"mode" json:"mode"`
	Clean           bool              `yaml:"clean" json:"clean"`
	MaxDistance     float64           `yaml:"maxDistance" json:"maxDistance"`
	NormalWeighting bool              `yaml:"normalWeighting" json:"normalWeighting"`
	MaxNormalAngle  float64           `yaml:"maxNormalAngle" json:"maxNormalAngle"` // degrees
	PlaneCap        int               `yaml:"planeCap" json:"planeCap"`
	Similarity      Similarity        `yaml:"similarity" json:"similarity"`
	Normals         NormalOptions     `yaml:"normals" json:"normals"`
	Ransac          RansacOptions     `yaml:"ransac" json:"ransac"`
	Hough           HoughOptions      `yaml:"hough" json:"hough"`
	Filter          FilterOptions     `yaml:"filter" json:"filter"`
	Attachments     AttachmentOptions `yaml:"attachments" json:"attachments"`
	Cleaner         CleanerOptions    `yaml:"cleaner" json:"cleaner"`
	LayoutHeight    float64           `yaml:"layoutHeight" json:"layoutHeight"`
	MaxEdgeLength   float64           `yaml:"maxEdgeLength" json:"maxEdgeLength"` // from-points triangles
	Parallelism     int               `yaml:"parallelism" json:"parallelism"`

	RNG    *rand.Rand  `yaml:"-" json:"-"`
	Logger *zap.Logger `yaml:"-" json:"-"`
}

// DefaultOptions returns the tuned constants for 1 unit = 1 metre data.
func DefaultOptions() Options {
	return Options{
		Finder:          FinderRansac,
		Mode:            ModeAttachments,
		MaxDistance:     0.4,   // inlier band around a plane
		NormalWeighting: false, // plane ranking uses distance only
		MaxNormalAngle:  60,
		PlaneCap:        5, // 2^5 subsets per search
		Similarity:      DefaultSimilarity(),
		Normals:         NormalOptions{Neighbours: 6, Radius: 2.0},
		Ransac:          RansacOptions{Samples: 400},
		Hough: HoughOptions{
			SlopeBins:    20,
			DistanceBins: 200,
			MinSlope:     -1.4,
			MaxSlope:     1.4,
			MinDistance:  -8,
			MaxDistance:  0.5,
			MinVoteRatio: 0.05, // of the point count
			MaximaRadius: 3,
		},
		Filter: FilterOptions{GroundDistance: 2.0, MaxGroundTilt: 10, MinWallAngle: 10},
		Attachments: AttachmentOptions{
			MinPlaneScore: 5.0,
			MinMeshScore:  2.0,
			MinDensity:    4.0,
			MaxIterations: 50,
		},
		Cleaner:       CleanerOptions{Spacing: 0.5, MergeDistance: 0.3, MaxTilt: 85},
		LayoutHeight:  5,
		MaxEdgeLength: 2.0,
		RNG:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// withDefaults fills zero fields from DefaultOptions so partially specified
// options (e.g. from YAML) stay usable.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Finder == "" {
		o.Finder = d.Finder
	}
	if o.Mode == "" {
		o.Mode = d.Mode
	}
	if o.MaxDistance <= 0 {
		o.MaxDistance = d.MaxDistance
	}
	if o.MaxNormalAngle <= 0 {
		o.MaxNormalAngle = d.MaxNormalAngle
	}
	if o.PlaneCap <= 0 {
		o.PlaneCap = d.PlaneCap
	}
	if o.Similarity == (Similarity{}) {
		o.Similarity = d.Similarity
	}
	if o.Normals.Neighbours <= 0 {
		o.Normals.Neighbours = d.Normals.Neighbours
	}
	if o.Normals.Radius <= 0 {
		o.Normals.Radius = d.Normals.Radius
	}
	if o.Ransac.Samples <= 0 {
		o.Ransac.Samples = d.Ransac.Samples
	}
	if o.Hough.SlopeBins <= 0 || o.Hough.DistanceBins <= 0 || o.Hough.MaxSlope <= o.Hough.MinSlope || o.Hough.MaxDistance <= o.Hough.MinDistance {
		o.Hough = d.Hough
	}
	if o.Filter == (FilterOptions{}) {
		o.Filter = d.Filter
	}
	if o.Attachments.MaxIterations <= 0 {
		o.Attachments = d.Attachments
	}
	if o.Cleaner.Spacing <= 0 {
		o.Cleaner = d.Cleaner
	}
	if o.LayoutHeight <= 0 {
		o.LayoutHeight = d.LayoutHeight
	}
	if o.MaxEdgeLength <= 0 {
		o.MaxEdgeLength = d.MaxEdgeLength
	}
	if o.RNG == nil {
		o.RNG = d.RNG
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Scorer returns the point scoring function for these options.
func (o Options) Scorer() Scorer {
	return Scorer{MaxDistance: o.MaxDistance, NormalWeighting: o.NormalWeighting, MaxAngle: o.MaxNormalAngle}
}
