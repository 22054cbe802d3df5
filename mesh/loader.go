package mesh

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/jblindsay/lidario"
	"github.com/paulmach/orb"
)

// Reference is subtracted from source coordinates (east, north, elevation)
// to keep working values small.
type Reference struct {
	East, North, Elevation float64
}

// DefaultReference is the survey origin of the city data set.
var DefaultReference = Reference{East: 391812, North: 5713741, Elevation: 80}

// toLocal maps source axes to the Y-up working frame.
func (r Reference) toLocal(east, north, elevation float64) r3.Vector {
	return r3.Vector{X: east - r.East, Y: elevation - r.Elevation, Z: north - r.North}
}

// LoadXYZ reads "east north elevation" lines separated by whitespace or
// commas. Blank lines are skipped.
func LoadXYZ(path string) ([]r3.Vector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening point file: %w", err)
	}
	defer f.Close()
	return readXYZ(f, path, DefaultReference)
}

func readXYZ(r io.Reader, name string, ref Reference) ([]r3.Vector, error) {
	var points []r3.Vector
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		fields := strings.Fields(strings.ReplaceAll(text, ",", " "))
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("%s:%d: bad line %q: want 3 coordinates", name, line, text)
		}
		var v [3]float64
		for i := range v {
			f, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: bad line %q: %w", name, line, text, err)
			}
			v[i] = f
		}
		points = append(points, ref.toLocal(v[0], v[1], v[2]))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return points, nil
}

// LoadPoints reads the compact binary format: little-endian int16 triples
// (east, elevation, north) in centimetres, east and north relative to the
// building centre.
func LoadPoints(path string, center [2]float64) ([]r3.Vector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading point file: %w", err)
	}
	if len(data)%6 != 0 {
		return nil, fmt.Errorf("%s: size %d is not a multiple of 6", path, len(data))
	}
	ref := DefaultReference
	points := make([]r3.Vector, 0, len(data)/6)
	for off := 0; off < len(data); off += 6 {
		x := int16(binary.LittleEndian.Uint16(data[off:]))
		y := int16(binary.LittleEndian.Uint16(data[off+2:]))
		z := int16(binary.LittleEndian.Uint16(data[off+4:]))
		points = append(points, ref.toLocal(
			float64(x)/100+center[0],
			float64(z)/100+center[1],
			float64(y)/100))
	}
	return points, nil
}

// LoadLAS reads every point record of a LAS file.
func LoadLAS(path string) ([]r3.Vector, error) {
	las, err := lidario.NewLasFile(path, "r")
	if err != nil {
		return nil, fmt.Errorf("opening LAS file: %w", err)
	}
	defer las.Close()

	ref := DefaultReference
	points := make([]r3.Vector, 0, las.Header.NumberPoints)
	for i := 0; i < las.Header.NumberPoints; i++ {
		p, err := las.LasPoint(i)
		if err != nil {
			return nil, fmt.Errorf("%s: point %d: %w", path, i, err)
		}
		d := p.PointData()
		points = append(points, ref.toLocal(d.X, d.Y, d.Z))
	}
	return points, nil
}

// LoadFootprint reads an .xyzshape outline. The elevation is ignored and a
// duplicated closing vertex is removed.
func LoadFootprint(path string) (orb.Ring, error) {
	points, err := LoadXYZ(path)
	if err != nil {
		return nil, err
	}
	ring := make([]orb.Point, len(points))
	for i, p := range points {
		ring[i] = Ground(p)
	}
	return orb.Ring(openRing(ring)), nil
}

type metadataFile struct {
	Address  string `json:"address"`
	CenterX  string `json:"schwerp_x"`
	CenterY  string `json:"schwerp_y"`
	Filename string `json:"filename"`
}

// LoadMetadata reads the building description. Coordinates may use a comma
// as decimal separator.
func LoadMetadata(path string) (*BuildingMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	var raw metadataFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing metadata %s: %w", path, err)
	}
	x, err := parseDecimal(raw.CenterX)
	if err != nil {
		return nil, fmt.Errorf("%s: schwerp_x: %w", path, err)
	}
	y, err := parseDecimal(raw.CenterY)
	if err != nil {
		return nil, fmt.Errorf("%s: schwerp_y: %w", path, err)
	}
	return &BuildingMetadata{Address: raw.Address, Center: [2]float64{x, y}, Filename: raw.Filename}, nil
}

func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}

// BuildingName is the file name up to its first dot.
func BuildingName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}

// LoadBuilding loads a building by the extension of path (.xyz, .points or
// .las) together with its sibling <name>.xyzshape footprint and <name>.json
// metadata when present. Metadata is required for .points files. The result
// is centred horizontally on its point centroid; Offset restores the source
// frame.
func LoadBuilding(path string) (*PointCloud, error) {
	name := BuildingName(path)
	dir := filepath.Dir(path)

	var meta *BuildingMetadata
	metaPath := filepath.Join(dir, name+".json")
	if _, err := os.Stat(metaPath); err == nil {
		if meta, err = LoadMetadata(metaPath); err != nil {
			return nil, err
		}
	}

	var (
		points []r3.Vector
		err    error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xyz":
		points, err = LoadXYZ(path)
	case ".points":
		if meta == nil {
			return nil, fmt.Errorf("%s: metadata %s is required for .points files", path, metaPath)
		}
		points, err = LoadPoints(path, meta.Center)
	case ".las":
		points, err = LoadLAS(path)
	default:
		return nil, fmt.Errorf("%s: unsupported file extension %q", path, ext)
	}
	if err != nil {
		return nil, err
	}

	var footprint orb.Ring
	shapePath := filepath.Join(dir, name+".xyzshape")
	if footprint, err = LoadFootprint(shapePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	offset := horizontalCentroid(points)
	for i := range points {
		points[i] = points[i].Sub(offset)
	}
	for i := range footprint {
		footprint[i] = orb.Point{footprint[i][0] - offset.X, footprint[i][1] - offset.Z}
	}

	pc, err := NewPointCloud(name, points, footprint)
	if err != nil {
		return nil, err
	}
	pc.Offset = offset
	pc.Metadata = meta
	return pc, nil
}

func horizontalCentroid(points []r3.Vector) r3.Vector {
	if len(points) == 0 {
		return r3.Vector{}
	}
	var c r3.Vector
	for _, p := range points {
		c.X += p.X
		c.Z += p.Z
	}
	n := float64(len(points))
	return r3.Vector{X: c.X / n, Z: c.Z / n}
}
