// Package domain holds the four-level administrative location hierarchy:
// county, subcounty, location, sublocation.
package domain

// Level identifies one level of the hierarchy. The string form is the row type in flattened output.
type Level string

const (
	LevelCounty      Level = "county"
	LevelSubcounty   Level = "subcounty"
	LevelLocation    Level = "location"
	LevelSublocation Level = "sublocation"
)

// Levels lists the hierarchy from root to leaf.
var Levels = []Level{LevelCounty, LevelSubcounty, LevelLocation, LevelSublocation}

// County is the root level. Subcounties keep the order the upstream returned them in.
type County struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Code        string      `json:"code"`
	Subcounties []Subcounty `json:"subcounties,omitempty"`
}

// Subcounty belongs to exactly one county.
type Subcounty struct {
	ID        int64      `json:"id"`
	CountyID  int64      `json:"countyId,omitempty"`
	Name      string     `json:"name"`
	Code      string     `json:"code"`
	Locations []Location `json:"locations,omitempty"`
}

// Location belongs to exactly one subcounty.
type Location struct {
	ID           int64         `json:"id"`
	SubcountyID  int64         `json:"subcountyId,omitempty"`
	Name         string        `json:"name"`
	Code         string        `json:"code"`
	Sublocations []Sublocation `json:"sublocations,omitempty"`
}

// Sublocation is the leaf level; households are registered against a sublocation.
type Sublocation struct {
	ID         int64  `json:"id"`
	LocationID int64  `json:"locationId,omitempty"`
	Name       string `json:"name"`
	Code       string `json:"code"`
}

// Option is one selectable entry of a single level, as returned by the per-level endpoints.
type Option struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// Row is one flattened node. ParentName is nil for counties.
type Row struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Code       string  `json:"code"`
	Type       Level   `json:"type"`
	ParentName *string `json:"parent_name"`
	FullPath   string  `json:"full_path"`
}

// AdminLocation is a row of the authenticated GET /locations listing.
type AdminLocation struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Code            string          `json:"code"`
	Type            string          `json:"type"`
	Parent          *AdminParentRef `json:"parent"`
	HouseholdsCount int64           `json:"households_count"`
}

// AdminParentRef is the immediate parent of an AdminLocation.
type AdminParentRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}
