package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from TurnStatus
		to   TurnStatus
		want bool
	}{
		{StatusAvailable, StatusReserved, true},
		{StatusAvailable, StatusAssigned, true},
		{StatusReserved, StatusReserved, true},
		{StatusReserved, StatusAssigned, true},
		{StatusReserved, StatusAvailable, false},
		{StatusAssigned, StatusReserved, false},
		{StatusAssigned, StatusAvailable, false},
		{StatusAssigned, StatusAssigned, false},
		{StatusAvailable, StatusAvailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNewTurnStatus(t *testing.T) {
	s, err := NewTurnStatus("RESERVED")
	require.NoError(t, err)
	assert.Equal(t, StatusReserved, s)

	_, err = NewTurnStatus("reserved")
	assert.Error(t, err)
}

func TestSourcesOf(t *testing.T) {
	assert.ElementsMatch(t, []TurnStatus{StatusAvailable, StatusReserved}, SourcesOf(StatusReserved))
	assert.ElementsMatch(t, []TurnStatus{StatusAvailable, StatusReserved}, SourcesOf(StatusAssigned))
	assert.Empty(t, SourcesOf(StatusAvailable))
}
