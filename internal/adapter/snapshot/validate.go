package snapshot

import (
	"fmt"

	"github.com/couchcryptid/mart-locator/internal/domain"
)

// Report summarizes a snapshot's contents and the problems found in it.
type Report struct {
	Total      int
	Resolved   int
	Unresolved int
	ByAccess   map[domain.AccessLevel]int
	Problems   []string
}

// OK reports whether no problems were found.
func (r Report) OK() bool {
	return len(r.Problems) == 0
}

// Validate checks identity uniqueness, address presence, coordinate ranges
// and access levels.
func Validate(entries []domain.CatalogEntry) Report {
	r := Report{
		Total:    len(entries),
		ByAccess: make(map[domain.AccessLevel]int),
	}
	seen := make(map[int]int, len(entries))
	for i, e := range entries {
		if prev, dup := seen[e.ID]; dup {
			r.Problems = append(r.Problems, fmt.Sprintf("record %d: duplicate id %d (first at record %d)", i, e.ID, prev))
		} else {
			seen[e.ID] = i
		}
		if e.Address == "" {
			r.Problems = append(r.Problems, fmt.Sprintf("record %d (id %d): empty address", i, e.ID))
		}
		if !e.AccessLevel.Valid() {
			r.Problems = append(r.Problems, fmt.Sprintf("record %d (id %d): invalid access level %q", i, e.ID, e.AccessLevel))
		}
		r.ByAccess[e.AccessLevel]++

		if e.Coordinates == nil {
			r.Unresolved++
			continue
		}
		r.Resolved++
		if !e.Coordinates.Valid() {
			r.Problems = append(r.Problems, fmt.Sprintf("record %d (id %d): coordinate %s out of range", i, e.ID, e.Coordinates))
		}
	}
	return r
}
