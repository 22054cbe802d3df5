package mesh

import "errors"

var (
	// ErrNoPlanes is returned when a builder runs before plane detection.
	ErrNoPlanes = errors.New("no planes")
	// ErrEmptyPointCloud is returned for a building without points.
	ErrEmptyPointCloud = errors.New("empty point cloud")
	// ErrInvalidFootprint is returned for footprints with fewer than three
	// vertices or that cannot be triangulated.
	ErrInvalidFootprint = errors.New("invalid footprint")
	// ErrUnknownMode is returned for an unrecognised construction mode.
	ErrUnknownMode = errors.New("unknown mode")
	// ErrUnknownFinder is returned for an unrecognised plane finder.
	ErrUnknownFinder = errors.New("unknown plane finder")
)

// BuildingMetadata describes a building as listed in the cadastre export.
// Center is the footprint centroid in source coordinates (east, north).
type BuildingMetadata struct {
	Address  string     `json:"address"`
	Center   [2]float64 `json:"center"`
	Filename string     `json:"filename"`
}

// Config represents the full configuration file
type Config struct {
	Reconstruction Options       `yaml:"reconstruction" json:"reconstruction"`
	Input          InputConfig   `yaml:"input" json:"input"`
	Output         OutputConfig  `yaml:"output" json:"output"`
	MQTT           MQTTConfig    `yaml:"mqtt" json:"mqtt"`
	Logging        LoggingConfig `yaml:"logging" json:"logging"`
	Workers        int           `yaml:"workers,omitempty" json:"workers,omitempty"` // Buildings reconstructed concurrently (default GOMAXPROCS)
}

// InputConfig locates the building point clouds.
type InputConfig struct {
	DataDir string `yaml:"dataDir" json:"dataDir"`
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"` // Glob within DataDir (default *.xyz)
	BaseURL string `yaml:"baseURL,omitempty" json:"baseURL,omitempty"` // Remote directory for on-demand downloads
}

// OutputConfig controls what is written per building.
type OutputConfig struct {
	Dir      string   `yaml:"dir" json:"dir"`
	Formats  []string `yaml:"formats,omitempty" json:"formats,omitempty"` // obj, geojson, svg, png
	TwoSided bool     `yaml:"twoSided,omitempty" json:"twoSided,omitempty"`
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// LoggingConfig selects the log level and optional rotating log file.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty" json:"level,omitempty"`
	File  string `yaml:"file,omitempty" json:"file,omitempty"`
}

// Output formats understood by OutputConfig.Formats.
const (
	FormatOBJ     = "obj"
	FormatGeoJSON = "geojson"
	FormatSVG     = "svg"
	FormatPNG     = "png"
)

// OutputFormats lists every supported output format.
var OutputFormats = []string{FormatOBJ, FormatGeoJSON, FormatSVG, FormatPNG}
