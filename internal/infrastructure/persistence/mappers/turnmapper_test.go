package mappers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taketurn/taketurn/internal/domain/turn"
	vo "github.com/taketurn/taketurn/internal/domain/turn/valueobjects"
	"github.com/taketurn/taketurn/internal/infrastructure/persistence/models"
)

func TestTurnMapper_AvailableSlotFollowsStatus(t *testing.T) {
	m := NewTurnMapper()
	tr, err := turn.NewTurn("id-1", 4)
	require.NoError(t, err)

	model := m.ToModel(tr)
	require.NotNil(t, model.AvailableSlot)
	assert.Equal(t, 1, *model.AvailableSlot)

	tr.Reserve()
	assert.Nil(t, m.ToModel(tr).AvailableSlot)
}

func TestTurnMapper_ToDomain(t *testing.T) {
	m := NewTurnMapper()

	got, err := m.ToDomain(&models.TurnModel{
		SID:       "id-7",
		Number:    7,
		Holder:    "alice",
		Status:    "ASSIGNED",
		CreatedAt: 1700000000000,
		UpdatedAt: 1700000001000,
	})
	require.NoError(t, err)
	assert.Equal(t, "id-7", got.ID())
	assert.Equal(t, int64(7), got.Number())
	assert.Equal(t, "alice", got.Holder())
	assert.Equal(t, vo.StatusAssigned, got.Status())
	assert.Equal(t, int64(1700000001000), got.UpdatedAt().UnixMilli())
}

func TestTurnMapper_ToDomainRejectsUnknownStatus(t *testing.T) {
	_, err := NewTurnMapper().ToDomain(&models.TurnModel{SID: "x", Number: 1, Status: "LOST"})
	assert.Error(t, err)
}
