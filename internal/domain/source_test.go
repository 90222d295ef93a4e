package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMartRow_ToEntry(t *testing.T) {
	row := MartRow{
		SEQ:       12,
		Mart:      " 계룡대점 ",
		Scale:     "대형",
		OpWeekday: "09:00-18:00",
		OpSat:     "09:00-13:00",
		OpSun:     "휴무",
		Note:      "주차 가능",
		Tel:       "042-000-0000",
		Loc:       "충청남도 계룡시 신도안면 계룡대로 663",
	}

	e := row.ToEntry()
	assert.Equal(t, 12, e.ID)
	assert.Equal(t, "계룡대점", e.Name)
	assert.Equal(t, "충청남도 계룡시 신도안면 계룡대로 663", e.Address)
	assert.Equal(t, "042-000-0000", e.Phone)
	assert.Equal(t, "평일: 09:00-18:00, 토: 09:00-13:00, 일: 휴무", e.Hours)
	assert.Equal(t, "대형 / 주차 가능", e.Description)
	assert.Equal(t, AccessYellow, e.AccessLevel)
	assert.False(t, e.Resolved())
}

func TestFlexInt_AcceptsNumberAndString(t *testing.T) {
	var rows []MartRow
	require.NoError(t, json.Unmarshal([]byte(`[{"SEQ":4},{"SEQ":"5"},{"SEQ":6.0},{"SEQ":null}]`), &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, FlexInt(4), rows[0].SEQ)
	assert.Equal(t, FlexInt(5), rows[1].SEQ)
	assert.Equal(t, FlexInt(6), rows[2].SEQ)
	assert.Equal(t, FlexInt(0), rows[3].SEQ)
}

func TestFlexInt_RejectsGarbage(t *testing.T) {
	var row MartRow
	assert.Error(t, json.Unmarshal([]byte(`{"SEQ":"abc"}`), &row))
}
