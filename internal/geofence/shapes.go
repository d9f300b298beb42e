package geofence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/paulmach/orb"
)

// Coordinate is one vertex of a polygon ring as stored in a shape file.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Shape is a polygon: an outer shell plus zero or more holes subtracted
// from it.
type Shape struct {
	Shell []Coordinate   `json:"shell"`
	Holes [][]Coordinate `json:"holes"`
}

type shapeFile struct {
	Shapes []Shape `json:"shapes"`
}

// ZoneSet is every polygon of one named inclusion zone, e.g. a travel-time
// isochrone, keyed by its threshold in minutes.
type ZoneSet struct {
	Minutes int
	Shapes  []Shape
}

// ShellRing converts the shell to an orb ring (x=lon, y=lat).
func (s *Shape) ShellRing() orb.Ring {
	return toRing(s.Shell)
}

// HoleRings converts the holes to orb rings.
func (s *Shape) HoleRings() []orb.Ring {
	rings := make([]orb.Ring, 0, len(s.Holes))
	for _, hole := range s.Holes {
		rings = append(rings, toRing(hole))
	}
	return rings
}

func toRing(coords []Coordinate) orb.Ring {
	ring := make(orb.Ring, 0, len(coords))
	for _, c := range coords {
		ring = append(ring, orb.Point{c.Lon, c.Lat})
	}
	return ring
}

func loadShapeFile(path string) ([]Shape, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shape file: %w", err)
	}
	var file shapeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse shape file %s: %w", filepath.Base(path), err)
	}
	return file.Shapes, nil
}

var minutesPattern = regexp.MustCompile(`\d+`)

// LoadZoneSets reads every inclusion shape file in a directory. Each file
// holds one zone and is named by its travel-time threshold in minutes. The
// result is sorted ascending by threshold.
func LoadZoneSets(dir string) ([]ZoneSet, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}

	var zones []ZoneSet
	for _, path := range paths {
		name := filepath.Base(path)
		token := minutesPattern.FindString(name)
		if token == "" {
			return nil, fmt.Errorf("shape file %s has no threshold in its name", name)
		}
		minutes, err := strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("shape file %s has an invalid threshold: %w", name, err)
		}

		shapes, err := loadShapeFile(path)
		if err != nil {
			return nil, err
		}
		zones = append(zones, ZoneSet{Minutes: minutes, Shapes: shapes})
	}

	sort.Slice(zones, func(i, j int) bool {
		return zones[i].Minutes < zones[j].Minutes
	})
	return zones, nil
}

// LoadExclusionShapes reads every exclusion shape file in a directory.
// A missing directory means no exclusion zones are configured.
func LoadExclusionShapes(dir string) ([]Shape, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}

	var shapes []Shape
	for _, path := range paths {
		loaded, err := loadShapeFile(path)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, loaded...)
	}
	return shapes, nil
}
