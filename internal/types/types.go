// Package types defines the canonical record shapes shared by the local
// slot store, the cloud adapter, the storage router, and the quota tracker.
package types

import "time"

// WeightUnit is the unit for a catch weight measurement.
type WeightUnit string

const (
	WeightPounds    WeightUnit = "lbs"
	WeightKilograms WeightUnit = "kg"
	WeightOunces    WeightUnit = "oz"
)

// LengthUnit is the unit for a catch length measurement.
type LengthUnit string

const (
	LengthInches      LengthUnit = "in"
	LengthCentimeters LengthUnit = "cm"
	LengthFeet        LengthUnit = "ft"
)

// Weight is a weight value paired with its unit.
type Weight struct {
	Value float64    `json:"value"`
	Unit  WeightUnit `json:"unit"`
}

// Length is a length value paired with its unit.
type Length struct {
	Value float64    `json:"value"`
	Unit  LengthUnit `json:"unit"`
}

// GeoPoint is a latitude/longitude pair captured when a catch is logged.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LureRecord is a stored identification result for one photographed lure,
// plus the catches the user has attached to it. CatchCount is derived from
// the live catch list and recomputed on every catch mutation; it is never
// incremented independently.
type LureRecord struct {
	ID         string         `json:"id"`
	ImageURI   string         `json:"imageUri"`
	LureType   string         `json:"lureType"`
	Confidence int            `json:"confidence"`
	Details    map[string]any `json:"details,omitempty"`
	IsFavorite bool           `json:"isFavorite"`
	Catches    []CatchRecord  `json:"catches"`
	CatchCount int            `json:"catchCount"`
	Timestamp  time.Time      `json:"timestamp"`
}

// RecomputeCatchCount resets CatchCount from the live catch list.
func (l *LureRecord) RecomputeCatchCount() {
	l.CatchCount = len(l.Catches)
}

// CatchRecord is a user-logged fishing event attributed to a lure.
type CatchRecord struct {
	ID          string    `json:"id"`
	LureID      string    `json:"lureId"`
	ImageURI    string    `json:"imageUri"`
	FishSpecies string    `json:"fishSpecies"`
	Weight      *Weight   `json:"weight,omitempty"`
	Length      *Length   `json:"length,omitempty"`
	Location    string    `json:"location,omitempty"`
	Coordinate  *GeoPoint `json:"coordinate,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewLure is the input for saving a freshly identified lure. The store
// assigns the id and timestamp.
type NewLure struct {
	ImageURI   string         `json:"imageUri"`
	LureType   string         `json:"lureType"`
	Confidence int            `json:"confidence"`
	Details    map[string]any `json:"details,omitempty"`
}

// NewCatch is the input for logging a catch against a lure. ImageURI is
// required on creation.
type NewCatch struct {
	ImageURI    string    `json:"imageUri"`
	FishSpecies string    `json:"fishSpecies"`
	Weight      *Weight   `json:"weight,omitempty"`
	Length      *Length   `json:"length,omitempty"`
	Location    string    `json:"location,omitempty"`
	Coordinate  *GeoPoint `json:"coordinate,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// CatchPatch carries replacement values for editing a catch. Nil fields are
// left untouched; in particular a nil ImageURI preserves the existing photo.
type CatchPatch struct {
	ImageURI    *string   `json:"imageUri,omitempty"`
	FishSpecies *string   `json:"fishSpecies,omitempty"`
	Weight      *Weight   `json:"weight,omitempty"`
	Length      *Length   `json:"length,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Coordinate  *GeoPoint `json:"coordinate,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
}

// LurePatch carries replacement values for editing a lure. Only favorite
// status is user-mutable after creation.
type LurePatch struct {
	IsFavorite *bool `json:"isFavorite,omitempty"`
}

// Apply merges the patch into an existing catch record.
func (p CatchPatch) Apply(c *CatchRecord) {
	if p.ImageURI != nil {
		c.ImageURI = *p.ImageURI
	}
	if p.FishSpecies != nil {
		c.FishSpecies = *p.FishSpecies
	}
	if p.Weight != nil {
		c.Weight = p.Weight
	}
	if p.Length != nil {
		c.Length = p.Length
	}
	if p.Location != nil {
		c.Location = *p.Location
	}
	if p.Coordinate != nil {
		c.Coordinate = p.Coordinate
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
}

// QuotaStatus is a point-in-time snapshot of the caller's identification
// allowance. It is derived from subscription state and the usage counter on
// every request and never persisted.
type QuotaStatus struct {
	IsPro     bool      `json:"isPro"`
	Unlimited bool      `json:"unlimited"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	Message   string    `json:"message"`
	Subtitle  string    `json:"subtitle,omitempty"`
	ResetsAt  time.Time `json:"resetsAt,omitempty"`
}

// TackleBoxStats summarizes a lure collection for the stats view.
type TackleBoxStats struct {
	TotalLures    int            `json:"totalLures"`
	FavoriteLures int            `json:"favoriteLures"`
	TotalCatches  int            `json:"totalCatches"`
	LureTypes     map[string]int `json:"lureTypes"`
	AvgConfidence int            `json:"avgConfidence"`
}
