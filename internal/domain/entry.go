package domain

import (
	"encoding/json"
	"fmt"
)

// AccessLevel describes how freely a store can be used by visitors.
type AccessLevel string

const (
	AccessRed    AccessLevel = "RED"
	AccessYellow AccessLevel = "YELLOW"
	AccessGreen  AccessLevel = "GREEN"
)

// ParseAccessLevel maps free text to an AccessLevel, defaulting to YELLOW.
func ParseAccessLevel(s string) AccessLevel {
	switch AccessLevel(s) {
	case AccessRed, AccessYellow, AccessGreen:
		return AccessLevel(s)
	default:
		return AccessYellow
	}
}

// Valid reports whether l is one of the known levels.
func (l AccessLevel) Valid() bool {
	switch l {
	case AccessRed, AccessYellow, AccessGreen:
		return true
	}
	return false
}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate lies within WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// CatalogEntry is one store in the catalog. Coordinates is nil while the
// entry is unresolved.
type CatalogEntry struct {
	ID          int
	Name        string
	Address     string
	Phone       string
	Hours       string
	Description string
	AccessLevel AccessLevel
	Coordinates *Coordinate
}

// Resolved reports whether the entry has known coordinates.
func (e CatalogEntry) Resolved() bool {
	return e.Coordinates != nil
}

// WithCoordinates returns a copy of e with its coordinates set to c.
func (e CatalogEntry) WithCoordinates(c Coordinate) CatalogEntry {
	e.Coordinates = &c
	return e
}

// entryJSON is the snapshot wire shape. Coordinates are flattened.
type entryJSON struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Lat         *float64    `json:"lat,omitempty"`
	Lng         *float64    `json:"lng,omitempty"`
	Address     string      `json:"address"`
	Phone       string      `json:"phone"`
	Hours       string      `json:"hours"`
	Description string      `json:"description"`
	AccessLevel AccessLevel `json:"accessLevel"`
}

func (e CatalogEntry) MarshalJSON() ([]byte, error) {
	out := entryJSON{
		ID:          e.ID,
		Name:        e.Name,
		Address:     e.Address,
		Phone:       e.Phone,
		Hours:       e.Hours,
		Description: e.Description,
		AccessLevel: e.AccessLevel,
	}
	if e.Coordinates != nil {
		lat, lng := e.Coordinates.Lat, e.Coordinates.Lng
		out.Lat, out.Lng = &lat, &lng
	}
	return json.Marshal(out)
}

func (e *CatalogEntry) UnmarshalJSON(data []byte) error {
	var in entryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = CatalogEntry{
		ID:          in.ID,
		Name:        in.Name,
		Address:     in.Address,
		Phone:       in.Phone,
		Hours:       in.Hours,
		Description: in.Description,
		AccessLevel: ParseAccessLevel(string(in.AccessLevel)),
	}
	// A half-present pair is treated as unresolved.
	if in.Lat != nil && in.Lng != nil {
		e.Coordinates = &Coordinate{Lat: *in.Lat, Lng: *in.Lng}
	}
	return nil
}
