package valueobjects

import "fmt"

type TurnStatus string

const (
	StatusAvailable TurnStatus = "AVAILABLE"
	StatusReserved  TurnStatus = "RESERVED"
	StatusAssigned  TurnStatus = "ASSIGNED"
)

var validTurnStatuses = map[TurnStatus]bool{
	StatusAvailable: true,
	StatusReserved:  true,
	StatusAssigned:  true,
}

// A status never moves backward. RESERVED may be re-entered.
var turnStatusTransitions = map[TurnStatus][]TurnStatus{
	StatusAvailable: {
		StatusReserved,
		StatusAssigned,
	},
	StatusReserved: {
		StatusReserved,
		StatusAssigned,
	},
	StatusAssigned: {},
}

func NewTurnStatus(s string) (TurnStatus, error) {
	status := TurnStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid turn status: %q", s)
	}
	return status, nil
}

func (ts TurnStatus) String() string {
	return string(ts)
}

func (ts TurnStatus) IsValid() bool {
	return validTurnStatuses[ts]
}

func (ts TurnStatus) IsAvailable() bool {
	return ts == StatusAvailable
}

func (ts TurnStatus) IsAssigned() bool {
	return ts == StatusAssigned
}

func (ts TurnStatus) CanTransitionTo(newStatus TurnStatus) bool {
	for _, allowed := range turnStatusTransitions[ts] {
		if allowed == newStatus {
			return true
		}
	}
	return false
}

// SourcesOf returns every status that may transition into target.
func SourcesOf(target TurnStatus) []TurnStatus {
	var sources []TurnStatus
	for _, from := range []TurnStatus{StatusAvailable, StatusReserved, StatusAssigned} {
		if from.CanTransitionTo(target) {
			sources = append(sources, from)
		}
	}
	return sources
}
