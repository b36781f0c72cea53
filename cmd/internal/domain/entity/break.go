package entity

import "medsched/cmd/internal/domain/schedule"

// Break types.
const (
	BreakLunch   = "lunch"
	BreakBreak   = "break"
	BreakMeeting = "meeting"
	BreakOther   = "other"
)

// BreakTypes lists the accepted break_type values.
var BreakTypes = []string{BreakLunch, BreakBreak, BreakMeeting, BreakOther}

// Break is a window during which an employee cannot take appointments.
// A nil Date means the break recurs on every date.
type Break struct {
	ID         int     `gorm:"primaryKey"`
	EmployeeID int     `gorm:"not null;index:idx_breaks_employee_date"`
	BreakType  string  `gorm:"not null;size:20"`
	Date       *string `gorm:"size:10;index:idx_breaks_employee_date"`
	StartMin   int     `gorm:"not null"`
	EndMin     int     `gorm:"not null"`
	Note       string
	CreatedAt  int64 `gorm:"not null"`
	UpdatedAt  int64 `gorm:"not null"`

	// Relations
	Employee Employee `gorm:"foreignKey:EmployeeID;references:ID"`
}

// Occurrence returns the break's schedule as a tagged variant.
func (b *Break) Occurrence() schedule.Occurrence {
	if b.Date == nil {
		return schedule.Recurring()
	}
	return schedule.OnDate(*b.Date)
}

func (b *Break) Range() schedule.Range {
	return schedule.Range{Start: b.StartMin, End: b.EndMin}
}
