package models

import "time"

// OpenValidTo is the sentinel "far future" timestamp marking the current
// version of a property's attribute chain.
var OpenValidTo = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// PropertyLocation is the immutable first-seen fact for a property. Rows are
// created once, when an id first appears in an area search, and never change.
type PropertyLocation struct {
	PropertyID int64     `gorm:"column:property_id;primaryKey;autoIncrement:false" json:"property_id"`
	FirstSeen  time.Time `gorm:"column:asatdt" json:"first_seen"`
	Channel    string    `gorm:"column:channel;index" json:"channel"`
	Latitude   float64   `gorm:"column:lat" json:"latitude"`
	Longitude  float64   `gorm:"column:lon" json:"longitude"`
}

func (PropertyLocation) TableName() string {
	return "property_location"
}

// PropertyData is one version of a property's mutable attributes. For any
// property id at most one row is open (ValidTo == OpenValidTo) at a time.
type PropertyData struct {
	PropertyID int64     `gorm:"column:property_id;primaryKey;autoIncrement:false" json:"property_id"`
	ValidFrom  time.Time `gorm:"column:validfrom;primaryKey" json:"valid_from"`
	ValidTo    time.Time `gorm:"column:validto;index" json:"valid_to"`

	Bedrooms       int      `gorm:"column:bedrooms" json:"bedrooms"`
	Bathrooms      int      `gorm:"column:bathrooms" json:"bathrooms"`
	Area           *float64 `gorm:"column:area" json:"area"`
	Summary        string   `gorm:"column:summary" json:"summary"`
	Address        string   `gorm:"column:address" json:"address"`
	Subtype        *string  `gorm:"column:subtype" json:"subtype"`
	Description    string   `gorm:"column:description" json:"description"`
	Premium        bool     `gorm:"column:premium" json:"premium"`
	PriceAmount    float64  `gorm:"column:price_amount" json:"price_amount"`
	PriceFrequency string   `gorm:"column:price_frequency" json:"price_frequency"`
	PriceQualifier *string  `gorm:"column:price_qualifier" json:"price_qualifier"`
	Agent          string   `gorm:"column:agent" json:"agent"`
	AgentBranch    string   `gorm:"column:agent_branch" json:"agent_branch"`
	Development    bool     `gorm:"column:development" json:"development"`
	Commercial     bool     `gorm:"column:commercial" json:"commercial"`
	Enhanced       bool     `gorm:"column:enhanced" json:"enhanced"`
	Students       bool     `gorm:"column:students" json:"students"`
	Auction        bool     `gorm:"column:auction" json:"auction"`

	FirstVisible        *time.Time `gorm:"column:first_visible" json:"first_visible"`
	LastUpdate          *time.Time `gorm:"column:last_update" json:"last_update"`
	LastDisplayedUpdate *time.Time `gorm:"column:last_displayed_update" json:"last_displayed_update"`
}

func (PropertyData) TableName() string {
	return "property_data"
}

// IsOpen reports whether this row is the current version.
func (p *PropertyData) IsOpen() bool {
	return p.ValidTo.Equal(OpenValidTo)
}

// SameAttributes compares every non-volatile attribute against another row.
// ValidFrom, ValidTo, FirstVisible and LastUpdate are excluded: they change
// on every ingestion and must not trigger a new version.
func (p *PropertyData) SameAttributes(o *PropertyData) bool {
	return p.Bedrooms == o.Bedrooms &&
		p.Bathrooms == o.Bathrooms &&
		floatPtrEqual(p.Area, o.Area) &&
		p.Summary == o.Summary &&
		p.Address == o.Address &&
		strPtrEqual(p.Subtype, o.Subtype) &&
		p.Description == o.Description &&
		p.Premium == o.Premium &&
		p.PriceAmount == o.PriceAmount &&
		p.PriceFrequency == o.PriceFrequency &&
		strPtrEqual(p.PriceQualifier, o.PriceQualifier) &&
		p.Agent == o.Agent &&
		p.AgentBranch == o.AgentBranch &&
		p.Development == o.Development &&
		p.Commercial == o.Commercial &&
		p.Enhanced == o.Enhanced &&
		p.Students == o.Students &&
		p.Auction == o.Auction &&
		timePtrEqual(p.LastDisplayedUpdate, o.LastDisplayedUpdate)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// PropertyImage is an image reference keyed by (property id, url). Inserted
// idempotently, never updated or removed.
type PropertyImage struct {
	PropertyID int64   `gorm:"column:property_id;primaryKey;autoIncrement:false" json:"property_id"`
	ImageURL   string  `gorm:"column:image_url;primaryKey" json:"image_url"`
	Caption    *string `gorm:"column:caption" json:"caption"`
}

func (PropertyImage) TableName() string {
	return "property_images"
}
