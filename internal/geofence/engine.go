package geofence

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"propwatch/server/internal/models"
)

type locationSource interface {
	UngeofencedLocations() ([]models.PropertyLocation, error)
}

// Engine classifies property coordinates against the configured zones. It is
// the only writer of the travel-time and exclusion tables; everything it
// writes is derived and recomputable from locations plus shape files.
type Engine struct {
	db           *gorm.DB
	source       locationSource
	logger       *logrus.Logger
	shapeDir     string
	exclusionDir string
}

// NewEngine creates a geofencing engine.
func NewEngine(db *gorm.DB, source locationSource, shapeDir, exclusionDir string, logger *logrus.Logger) *Engine {
	return &Engine{
		db:           db,
		source:       source,
		logger:       logger,
		shapeDir:     shapeDir,
		exclusionDir: exclusionDir,
	}
}

// Report summarises one geofencing pass.
type Report struct {
	Evaluated int
	Matched   int
	Excluded  int
}

// Run classifies every property that has not yet been through a pass. Each
// property gets the minimum threshold among the inclusion zones containing
// it (sentinel when none do) and an exclusion flag, then counts as reviewed
// so it is not recomputed.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	var report Report

	locations, err := e.source.UngeofencedLocations()
	if err != nil {
		return report, err
	}
	if len(locations) == 0 {
		e.logger.Info("No properties pending geofencing")
		return report, nil
	}

	zones, err := LoadZoneSets(e.shapeDir)
	if err != nil {
		return report, fmt.Errorf("failed to load inclusion zones: %w", err)
	}
	exclusions, err := LoadExclusionShapes(e.exclusionDir)
	if err != nil {
		return report, fmt.Errorf("failed to load exclusion zones: %w", err)
	}

	points := make([]orb.Point, len(locations))
	for i, loc := range locations {
		points[i] = orb.Point{loc.Longitude, loc.Latitude}
	}

	travel := make([]int, len(points))
	for i := range travel {
		travel[i] = models.NoZoneMatch
	}

	// Zones are sorted ascending, so the first zone containing a point is
	// its minimum threshold.
	for _, zone := range zones {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		inside := anyShapeMembership(points, zone.Shapes)
		for i, in := range inside {
			if in && travel[i] == models.NoZoneMatch {
				travel[i] = zone.Minutes
			}
		}
	}

	excluded := anyShapeMembership(points, exclusions)

	err = e.db.Transaction(func(tx *gorm.DB) error {
		for i, loc := range locations {
			tt := models.TravelTime{PropertyID: loc.PropertyID, TravelTime: travel[i]}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&tt).Error; err != nil {
				return err
			}
			ex := models.PropertyExclusion{PropertyID: loc.PropertyID, Excluded: excluded[i]}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&ex).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("failed to persist geofencing results: %w", err)
	}

	report.Evaluated = len(locations)
	for i := range locations {
		if travel[i] != models.NoZoneMatch {
			report.Matched++
		}
		if excluded[i] {
			report.Excluded++
		}
	}

	e.logger.WithFields(logrus.Fields{
		"evaluated": report.Evaluated,
		"matched":   report.Matched,
		"excluded":  report.Excluded,
	}).Info("Geofencing pass complete")
	return report, nil
}
