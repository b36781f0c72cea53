package entity

// Employee is a bookable staff member (doctor, nurse, therapist).
type Employee struct {
	ID              int    `gorm:"primaryKey"`
	FullName        string `gorm:"not null;size:160"`
	Role            string `gorm:"not null;size:40"`
	CalendarColor   string `gorm:"size:7"`
	SlotStepMinutes int    `gorm:"not null;default:30"` // online booking grid
	IsActive        bool   `gorm:"not null;default:true"`
	CreatedAt       int64  `gorm:"not null"`
	UpdatedAt       int64  `gorm:"not null"`
}

type Patient struct {
	ID        int    `gorm:"primaryKey"`
	FullName  string `gorm:"not null;size:160"`
	Phone     string `gorm:"size:32;index"`
	IsActive  bool   `gorm:"not null;default:true"`
	CreatedAt int64  `gorm:"not null"`
	UpdatedAt int64  `gorm:"not null"`
}

// Resource kinds.
const (
	ResourceRoom      = "room"
	ResourceEquipment = "equipment"
)

// Resource is a bookable non-human asset attached to appointments.
type Resource struct {
	ID        int    `gorm:"primaryKey"`
	Name      string `gorm:"not null;size:120"`
	Kind      string `gorm:"not null;size:20"`
	IsActive  bool   `gorm:"not null;default:true"`
	CreatedAt int64  `gorm:"not null"`
	UpdatedAt int64  `gorm:"not null"`
}
