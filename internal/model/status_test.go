package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStatusLabels(t *testing.T) {
	tests := []struct {
		status OpenStatus
		name   string
		label  string
		open   bool
	}{
		{StatusOpen, "open", "Open", true},
		{StatusClosed, "closed", "Closed", false},
		{StatusOpeningSoon, "openingSoon", "Opening Soon", false},
		{StatusClosingSoon, "closingSoon", "Closing Soon", true},
		{StatusUnknown, "unknown", "Unknown", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.name, tc.status.String())
			assert.Equal(t, tc.label, tc.status.Label())
			assert.Equal(t, tc.open, tc.status.IsOpen())
		})
	}
}

func TestOpenStatusJSON(t *testing.T) {
	b, err := json.Marshal(map[string]OpenStatus{"s": StatusClosingSoon})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"closingSoon"}`, string(b))

	var got OpenStatus
	require.NoError(t, json.Unmarshal([]byte(`"openingSoon"`), &got))
	assert.Equal(t, StatusOpeningSoon, got)

	assert.Error(t, json.Unmarshal([]byte(`"ajar"`), &got))
}

func TestChefStatusLabels(t *testing.T) {
	assert.Equal(t, "Left For Today", ChefGone.Label())
	assert.Equal(t, "Here Now", ChefHereNow.Label())
	assert.Equal(t, "arrivingSoon", ChefArrivingSoon.String())

	var got ChefStatus
	require.NoError(t, json.Unmarshal([]byte(`"leavingSoon"`), &got))
	assert.Equal(t, ChefLeavingSoon, got)
}

func TestLocationScheduleCloneIsolated(t *testing.T) {
	orig := LocationSchedule{
		ID:    1,
		Chefs: []ChefAppearance{{Name: "A", Status: ChefArrivingLater}},
	}
	cp := orig.Clone()
	cp.Chefs[0].Status = ChefHereNow

	assert.Equal(t, ChefArrivingLater, orig.Chefs[0].Status)
	assert.Nil(t, cp.Intervals)
}
