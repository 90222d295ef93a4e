package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MartRow is one row of the TB_MND_MART_CURRENT catalog table.
type MartRow struct {
	SEQ          FlexInt `json:"SEQ"`
	Mart         string  `json:"MART"`
	Scale        string  `json:"SCALE"`
	OpWeekday    string  `json:"OP_WEEKDAY"`
	OpSat        string  `json:"OP_SAT"`
	OpSun        string  `json:"OP_SUN"`
	LunchWeekday string  `json:"LUNCH_WEEKDAY,omitempty"`
	LunchSat     string  `json:"LUNCH_SAT,omitempty"`
	LunchSun     string  `json:"LUNCH_SUN,omitempty"`
	Note         string  `json:"NOTE"`
	Tel          string  `json:"TEL"`
	Loc          string  `json:"LOC"`
}

// CatalogPage is a window of catalog rows plus the table's total size.
type CatalogPage struct {
	TotalCount int
	Rows       []MartRow
}

// ToEntry maps a source row to an unresolved CatalogEntry.
func (r MartRow) ToEntry() CatalogEntry {
	return CatalogEntry{
		ID:          int(r.SEQ),
		Name:        strings.TrimSpace(r.Mart),
		Address:     strings.TrimSpace(r.Loc),
		Phone:       strings.TrimSpace(r.Tel),
		Hours:       r.Hours(),
		Description: r.Description(),
		AccessLevel: AccessYellow,
	}
}

// Hours flattens the per-day opening hours into one display string.
func (r MartRow) Hours() string {
	return fmt.Sprintf("평일: %s, 토: %s, 일: %s", r.OpWeekday, r.OpSat, r.OpSun)
}

// Description joins the size class and remarks.
func (r MartRow) Description() string {
	return fmt.Sprintf("%s / %s", r.Scale, r.Note)
}

// FlexInt decodes a JSON number or a numeric string. The open data API is
// inconsistent about quoting numeric columns.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	var num json.Number
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	num = json.Number(s)
	v, err := num.Int64()
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("parse integer %q: %w", s, err)
		}
		v = int64(f)
	}
	*n = FlexInt(v)
	return nil
}
