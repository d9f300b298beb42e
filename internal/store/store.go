package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"propwatch/server/internal/listing"
	"propwatch/server/internal/models"
)

// Store owns every write to the property tables: immutable first-seen
// locations, the versioned attribute chain, and image references.
type Store struct {
	db     *gorm.DB
	logger *logrus.Logger
	locks  *idLocks
}

// NewStore creates a store over an open database handle.
func NewStore(db *gorm.DB, logger *logrus.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
		locks:  newIDLocks(),
	}
}

// ApplyResult summarises one detail batch ingestion.
type ApplyResult struct {
	Inserted int
	Updated  int
	Closed   int
	Failed   int
}

// RecordDiscoveredLocations inserts a first-seen row for every summary whose
// id is not already known. Re-running with the same summaries is a no-op.
// Returns the number of newly recorded properties.
func (s *Store) RecordDiscoveredLocations(summaries []listing.Summary, channel listing.Channel) (int, error) {
	if len(summaries) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([]models.PropertyLocation, 0, len(summaries))
	for _, summary := range summaries {
		rows = append(rows, models.PropertyLocation{
			PropertyID: summary.ID,
			FirstSeen:  now,
			Channel:    strings.ToUpper(string(channel)),
			Latitude:   summary.Location.Latitude,
			Longitude:  summary.Location.Longitude,
		})
	}

	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to record discovered locations: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

// ApplyDetailBatch ingests one detail fetch response. Every requested id
// absent from the response is treated as delisted and its current row closed.
// Every returned record either opens a new version, bumps the current row's
// last-update, or is skipped with a failure count if malformed. A single bad
// property never aborts its siblings.
func (s *Store) ApplyDetailBatch(details map[int64]listing.Detail, requested []int64) (ApplyResult, error) {
	var result ApplyResult
	now := time.Now().UTC()

	for _, id := range requested {
		if _, ok := details[id]; ok {
			continue
		}
		closed, err := s.closeCurrent(id, now)
		if err != nil {
			s.logger.WithError(err).WithField("property_id", id).Error("Failed to close delisted property")
			result.Failed++
			continue
		}
		if closed {
			s.logger.WithField("property_id", id).Info("Property delisted, closed current version")
			result.Closed++
		}
	}

	for id, detail := range details {
		outcome, err := s.applyOne(id, detail, now)
		if err != nil {
			s.logger.WithError(err).WithField("property_id", id).Error("Failed to ingest property, skipping")
			result.Failed++
			continue
		}
		switch outcome {
		case outcomeInserted:
			result.Inserted++
		case outcomeUpdated:
			result.Updated++
		}
	}

	return result, nil
}

type applyOutcome int

const (
	outcomeInserted applyOutcome = iota
	outcomeUpdated
)

// closeCurrent ends the open version for a property, if one exists. Returns
// whether a row was closed.
func (s *Store) closeCurrent(id int64, now time.Time) (bool, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	result := s.db.Model(&models.PropertyData{}).
		Where("property_id = ? AND validto >= ?", id, now).
		Update("validto", now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// applyOne runs the version-chain update for a single property inside one
// transaction, so a cancelled run can never leave the chain half-closed.
func (s *Store) applyOne(id int64, detail listing.Detail, now time.Time) (applyOutcome, error) {
	candidate, err := buildCandidate(id, detail, now)
	if err != nil {
		return 0, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	var outcome applyOutcome
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var current models.PropertyData
		err := tx.Where("property_id = ? AND validto >= ?", id, now).
			Order("validfrom DESC").
			First(&current).Error
		hasCurrent := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		for _, img := range detail.PropertyImages.Images {
			row := models.PropertyImage{
				PropertyID: id,
				ImageURL:   img.SrcURL,
				Caption:    img.Caption,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
		}

		if hasCurrent && current.SameAttributes(candidate) {
			outcome = outcomeUpdated
			return tx.Model(&models.PropertyData{}).
				Where("property_id = ? AND validfrom = ?", current.PropertyID, current.ValidFrom).
				Update("last_update", now).Error
		}

		if hasCurrent {
			if err := tx.Model(&models.PropertyData{}).
				Where("property_id = ? AND validfrom = ?", current.PropertyID, current.ValidFrom).
				Update("validto", now).Error; err != nil {
				return err
			}
		}
		outcome = outcomeInserted
		return tx.Create(candidate).Error
	})
	if err != nil {
		return 0, fmt.Errorf("version chain update failed: %w", err)
	}
	return outcome, nil
}

// buildCandidate maps a raw detail record onto a new open version row.
func buildCandidate(id int64, detail listing.Detail, now time.Time) (*models.PropertyData, error) {
	if detail.ID != id {
		return nil, fmt.Errorf("payload id %d does not match requested id %d", detail.ID, id)
	}

	var qualifier *string
	if len(detail.Price.DisplayPrices) > 0 {
		qualifier = detail.Price.DisplayPrices[0].DisplayPriceQualifier
	}

	lastUpdate := now
	return &models.PropertyData{
		PropertyID:          id,
		ValidFrom:           now,
		ValidTo:             models.OpenValidTo,
		Bedrooms:            intOrZero(detail.Bedrooms),
		Bathrooms:           intOrZero(detail.Bathrooms),
		Area:                parseArea(detail.DisplaySize),
		Summary:             detail.Summary,
		Address:             detail.DisplayAddress,
		Subtype:             detail.PropertySubType,
		Description:         detail.Description,
		Premium:             detail.PremiumListing,
		PriceAmount:         detail.Price.Amount,
		PriceFrequency:      detail.Price.Frequency,
		PriceQualifier:      qualifier,
		Agent:               detail.Customer.BrandTradingName,
		AgentBranch:         detail.Customer.BranchName,
		Development:         detail.Development,
		Commercial:          detail.Commercial,
		Enhanced:            detail.EnhancedListing,
		Students:            detail.Students,
		Auction:             detail.Auction,
		FirstVisible:        parseFirstVisible(detail.FirstVisibleDate),
		LastUpdate:          &lastUpdate,
		LastDisplayedUpdate: parseAddedOrReduced(detail.AddedOrReduced, now),
	}, nil
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// idLocks serializes version-chain writes per property id while letting
// distinct ids commit concurrently.
type idLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newIDLocks() *idLocks {
	return &idLocks{locks: make(map[int64]*sync.Mutex)}
}

func (l *idLocks) lock(id int64) (unlock func()) {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
