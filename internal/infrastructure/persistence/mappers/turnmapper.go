package mappers

import (
	"fmt"
	"time"

	"github.com/taketurn/taketurn/internal/domain/turn"
	vo "github.com/taketurn/taketurn/internal/domain/turn/valueobjects"
	"github.com/taketurn/taketurn/internal/infrastructure/persistence/models"
)

// TurnMapper converts between turn entities and persistence models.
type TurnMapper interface {
	ToModel(t *turn.Turn) *models.TurnModel
	ToDomain(model *models.TurnModel) (*turn.Turn, error)
	ToDomainList(list []models.TurnModel) ([]*turn.Turn, error)
}

type TurnMapperImpl struct{}

func NewTurnMapper() TurnMapper {
	return &TurnMapperImpl{}
}

func (m *TurnMapperImpl) ToModel(t *turn.Turn) *models.TurnModel {
	return &models.TurnModel{
		SID:           t.ID(),
		Number:        t.Number(),
		Holder:        t.Holder(),
		Status:        t.Status().String(),
		AvailableSlot: models.AvailableSlot(t.IsAvailable()),
		CreatedAt:     t.CreatedAt().UnixMilli(),
		UpdatedAt:     t.UpdatedAt().UnixMilli(),
	}
}

func (m *TurnMapperImpl) ToDomain(model *models.TurnModel) (*turn.Turn, error) {
	if model == nil {
		return nil, nil
	}

	status, err := vo.NewTurnStatus(model.Status)
	if err != nil {
		return nil, fmt.Errorf("turn %s: %w", model.SID, err)
	}

	return turn.ReconstructTurn(
		model.SID,
		model.Number,
		model.Holder,
		status,
		time.UnixMilli(model.CreatedAt).UTC(),
		time.UnixMilli(model.UpdatedAt).UTC(),
	)
}

func (m *TurnMapperImpl) ToDomainList(list []models.TurnModel) ([]*turn.Turn, error) {
	out := make([]*turn.Turn, 0, len(list))
	for i := range list {
		t, err := m.ToDomain(&list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
