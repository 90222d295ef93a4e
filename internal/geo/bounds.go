package geo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/mart-locator/internal/domain"
)

// Bounds is a viewport rectangle given by its south-west and north-east
// corners. West may exceed East when the box crosses the antimeridian.
type Bounds struct {
	SW domain.Coordinate
	NE domain.Coordinate
}

// CrossesAntimeridian reports whether the box wraps past 180°.
func (b Bounds) CrossesAntimeridian() bool {
	return b.SW.Lng > b.NE.Lng
}

// Contains reports whether c lies inside the box, edges included.
func (b Bounds) Contains(c domain.Coordinate) bool {
	if c.Lat < b.SW.Lat || c.Lat > b.NE.Lat {
		return false
	}
	if b.CrossesAntimeridian() {
		return c.Lng >= b.SW.Lng || c.Lng <= b.NE.Lng
	}
	return c.Lng >= b.SW.Lng && c.Lng <= b.NE.Lng
}

// ParseBounds reads "swLat,swLng,neLat,neLng".
func ParseBounds(s string) (Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bounds{}, fmt.Errorf("bounds %q: want swLat,swLng,neLat,neLng", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Bounds{}, fmt.Errorf("bounds %q: %w", s, err)
		}
		vals[i] = v
	}
	b := Bounds{
		SW: domain.Coordinate{Lat: vals[0], Lng: vals[1]},
		NE: domain.Coordinate{Lat: vals[2], Lng: vals[3]},
	}
	if b.SW.Lat > b.NE.Lat {
		return Bounds{}, fmt.Errorf("bounds %q: south latitude above north", s)
	}
	return b, nil
}

// ParseCoordinate reads "lat,lng".
func ParseCoordinate(s string) (domain.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.Coordinate{}, fmt.Errorf("coordinate %q: want lat,lng", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("coordinate %q: %w", s, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("coordinate %q: %w", s, err)
	}
	c := domain.Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return domain.Coordinate{}, fmt.Errorf("coordinate %q: out of range", s)
	}
	return c, nil
}
