package models

import "time"

// NoZoneMatch is the travel time recorded when a property's coordinates fall
// outside every inclusion zone.
const NoZoneMatch = 999

// TravelTime holds the minimum inclusion-zone threshold a property satisfies.
// Derived data: recomputable from PropertyLocation plus the shape files.
type TravelTime struct {
	PropertyID int64 `gorm:"column:property_id;primaryKey;autoIncrement:false" json:"property_id"`
	TravelTime int   `gorm:"column:travel_time" json:"travel_time"`
}

func (TravelTime) TableName() string {
	return "travel_time"
}

// PropertyExclusion flags a property whose coordinates fall inside any
// exclusion zone.
type PropertyExclusion struct {
	PropertyID int64 `gorm:"column:property_id;primaryKey;autoIncrement:false" json:"property_id"`
	Excluded   bool  `gorm:"column:excluded" json:"excluded"`
}

func (PropertyExclusion) TableName() string {
	return "property_location_excluded"
}

// ReviewedProperty records a property included in a review batch. Written by
// the email subsystem; this service only reads it to answer "pending review".
type ReviewedProperty struct {
	PropertyID   int64     `gorm:"column:property_id;primaryKey;autoIncrement:false" json:"property_id"`
	ReviewedDate time.Time `gorm:"column:reviewed_date" json:"reviewed_date"`
	Emailed      bool      `gorm:"column:emailed" json:"emailed"`
}

func (ReviewedProperty) TableName() string {
	return "reviewed_properties"
}

// ReviewDate is the batch header for a set of reviewed properties.
type ReviewDate struct {
	ReviewedDate time.Time `gorm:"column:reviewed_date;primaryKey" json:"reviewed_date"`
	EmailID      int64     `gorm:"column:email_id" json:"email_id"`
	StrDate      *string   `gorm:"column:str_date" json:"str_date"`
}

func (ReviewDate) TableName() string {
	return "review_dates"
}
