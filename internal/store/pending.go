package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"propwatch/server/internal/listing"
	"propwatch/server/internal/models"
)

// PendingMode selects which ids a pending-id scan produces.
type PendingMode int

const (
	// Backfill selects properties that have never had a detail fetch.
	Backfill PendingMode = iota
	// Refresh selects properties whose current version is stale.
	Refresh
)

func (m PendingMode) String() string {
	switch m {
	case Backfill:
		return "backfill"
	case Refresh:
		return "refresh"
	default:
		return "unknown"
	}
}

func (s *Store) pendingQuery(mode PendingMode, channel listing.Channel, cutoff *time.Time) *gorm.DB {
	q := s.db.Table("property_location").
		Joins("LEFT JOIN property_data ON property_data.property_id = property_location.property_id").
		Where("property_location.channel = ?", string(channel))

	switch mode {
	case Refresh:
		now := time.Now().UTC()
		q = q.Where("property_data.validto >= ?", now)
		if cutoff != nil {
			q = q.Where("property_data.last_update < ? OR property_data.last_update IS NULL", *cutoff)
		}
	default:
		q = q.Where("property_data.property_id IS NULL")
	}
	return q
}

// CountPending returns how many ids a PendingIDs scan with the same arguments
// would emit.
func (s *Store) CountPending(mode PendingMode, channel listing.Channel, cutoff *time.Time) (int64, error) {
	var count int64
	err := s.pendingQuery(mode, channel, cutoff).
		Select("COUNT(DISTINCT property_location.property_id)").
		Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count pending ids: %w", err)
	}
	return count, nil
}

// PendingIDs streams the ids needing a detail fetch in batches of at most
// batchSize, invoking fn for each batch. Each batch is materialized with
// keyset pagination before fn runs; no read cursor stays open across the
// callback, so fn may write to the same database. The scan is finite and
// restartable; an error from fn stops it.
func (s *Store) PendingIDs(mode PendingMode, channel listing.Channel, cutoff *time.Time, batchSize int, fn func(ids []int64) error) error {
	if batchSize <= 0 {
		batchSize = 25
	}

	var last *int64
	for {
		q := s.pendingQuery(mode, channel, cutoff)
		if last != nil {
			q = q.Where("property_location.property_id > ?", *last)
		}

		var ids []int64
		err := q.Distinct().
			Order("property_location.property_id").
			Limit(batchSize).
			Pluck("property_location.property_id", &ids).Error
		if err != nil {
			return fmt.Errorf("failed to scan pending ids: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		if err := fn(ids); err != nil {
			return err
		}
		if len(ids) < batchSize {
			return nil
		}
		id := ids[len(ids)-1]
		last = &id
	}
}

// UngeofencedLocations returns every property that has not yet been through
// a geofencing pass, i.e. has no travel-time row.
func (s *Store) UngeofencedLocations() ([]models.PropertyLocation, error) {
	var locations []models.PropertyLocation
	err := s.db.Table("property_location").
		Joins("LEFT JOIN travel_time ON travel_time.property_id = property_location.property_id").
		Where("travel_time.property_id IS NULL").
		Find(&locations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load ungeofenced locations: %w", err)
	}
	return locations, nil
}

// ReviewCandidate is a property awaiting review: currently listed, within the
// travel-time ceiling, not excluded and not yet part of any review batch.
type ReviewCandidate struct {
	PropertyID   int64      `gorm:"column:property_id" json:"property_id"`
	Latitude     float64    `gorm:"column:lat" json:"latitude"`
	Longitude    float64    `gorm:"column:lon" json:"longitude"`
	TravelTime   int        `gorm:"column:travel_time" json:"travel_time"`
	PriceAmount  float64    `gorm:"column:price_amount" json:"price_amount"`
	Address      string     `gorm:"column:address" json:"address"`
	Summary      string     `gorm:"column:summary" json:"summary"`
	FirstVisible *time.Time `gorm:"column:first_visible" json:"first_visible"`
}

// PendingReview lists the properties awaiting review. Batch creation and
// emailing happen elsewhere; this is the read side they consume.
func (s *Store) PendingReview(maxTravelTime int) ([]ReviewCandidate, error) {
	var candidates []ReviewCandidate
	err := s.db.Raw(`
		SELECT pl.property_id, pl.lat, pl.lon, tt.travel_time,
		       pd.price_amount, pd.address, pd.summary, pd.first_visible
		FROM property_location pl
		JOIN property_data pd ON pd.property_id = pl.property_id AND pd.validto >= ?
		JOIN travel_time tt ON tt.property_id = pl.property_id
		LEFT JOIN property_location_excluded pe ON pe.property_id = pl.property_id
		LEFT JOIN reviewed_properties rp ON rp.property_id = pl.property_id
		WHERE tt.travel_time < ?
		  AND rp.property_id IS NULL
		  AND (pe.excluded IS NULL OR NOT pe.excluded)
		ORDER BY tt.travel_time, pd.price_amount
	`, time.Now().UTC(), maxTravelTime).Scan(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load pending review properties: %w", err)
	}
	return candidates, nil
}
