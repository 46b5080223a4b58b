package dto

import (
	"time"

	"github.com/taketurn/taketurn/internal/domain/turn"
)

// TurnDTO is the public view of a turn. Field names follow the wire format
// existing clients already consume.
type TurnDTO struct {
	ID        string    `json:"turn_id"`
	Number    int64     `json:"turn"`
	Holder    string    `json:"user_name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TurnReference is pushed to listeners whenever the available turn changes.
type TurnReference struct {
	ServerURL         string `json:"server_url"`
	NextAvailableTurn string `json:"next_available_turn"`
	Number            int64  `json:"turn"`
}

// Turn change kinds relayed between service instances.
const (
	ChangeAllocated = "allocated"
	ChangeReset     = "reset"
)

// TurnChange describes a mutation other instances should react to.
type TurnChange struct {
	Type   string `json:"type"`
	TurnID string `json:"turn_id"`
	Number int64  `json:"number"`
}

func ToTurnDTO(t *turn.Turn) *TurnDTO {
	if t == nil {
		return nil
	}
	return &TurnDTO{
		ID:        t.ID(),
		Number:    t.Number(),
		Holder:    t.Holder(),
		Status:    t.Status().String(),
		CreatedAt: t.CreatedAt(),
		UpdatedAt: t.UpdatedAt(),
	}
}

func ToTurnDTOs(list []*turn.Turn) []*TurnDTO {
	out := make([]*TurnDTO, 0, len(list))
	for _, t := range list {
		out = append(out, ToTurnDTO(t))
	}
	return out
}

func NewTurnReference(serverURL string, t *turn.Turn) TurnReference {
	return TurnReference{
		ServerURL:         serverURL,
		NextAvailableTurn: t.ID(),
		Number:            t.Number(),
	}
}
