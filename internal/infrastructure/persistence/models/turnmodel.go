package models

// availableSlotValue marks the single AVAILABLE row. Every other row keeps
// available_slot NULL, so the unique index admits at most one available turn
// on both MySQL and SQLite.
const availableSlotValue = 1

type TurnModel struct {
	ID            uint   `gorm:"primaryKey"`
	SID           string `gorm:"column:turn_sid;uniqueIndex;size:36;not null"`
	Number        int64  `gorm:"uniqueIndex;not null"`
	Holder        string `gorm:"size:255;not null"`
	Status        string `gorm:"size:20;not null;index"`
	AvailableSlot *int   `gorm:"uniqueIndex"`
	CreatedAt     int64  `gorm:"autoCreateTime:milli;not null"`
	UpdatedAt     int64  `gorm:"autoUpdateTime:milli;not null"`
}

func (TurnModel) TableName() string {
	return "turns"
}

// AvailableSlot returns the slot value for a row in the given status.
func AvailableSlot(available bool) *int {
	if !available {
		return nil
	}
	v := availableSlotValue
	return &v
}
