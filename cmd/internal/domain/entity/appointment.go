package entity

// Appointment statuses, matching the clinic workflow. Canceled and no-show
// appointments do not block the calendar.
const (
	StatusBooked     = "booked"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusNoShow     = "no_show"
	StatusCanceled   = "canceled"
)

// ActiveStatuses are the statuses that occupy the employee's calendar.
var ActiveStatuses = []string{StatusBooked, StatusConfirmed, StatusInProgress, StatusDone}

type Appointment struct {
	ID                 int    `gorm:"primaryKey"`
	Ref                string `gorm:"not null;uniqueIndex;size:36"` // public reference used in API paths
	EmployeeID         int    `gorm:"not null;index:idx_appointments_employee_date"`
	PatientID          int    `gorm:"not null;index"` // References: patients(id)
	Date               string `gorm:"not null;size:10;index:idx_appointments_employee_date"`
	StartMin           int    `gorm:"not null"`
	EndMin             int    `gorm:"not null"`
	Status             string `gorm:"not null;size:20;index"`
	Note               string
	CancellationReason string
	CreatedAt          int64 `gorm:"not null"`
	UpdatedAt          int64 `gorm:"not null"`

	// Relations
	Employee  Employee              `gorm:"foreignKey:EmployeeID;references:ID"`
	Patient   Patient               `gorm:"foreignKey:PatientID;references:ID"`
	Resources []AppointmentResource `gorm:"foreignKey:AppointmentID;references:ID;constraint:OnDelete:CASCADE"`
}

func (a *Appointment) IsActive() bool {
	switch a.Status {
	case StatusCanceled, StatusNoShow:
		return false
	}
	return true
}

// AppointmentResource allocates a bookable resource (room, equipment) to an
// appointment for its whole time range. Rows live and die with the owning
// appointment.
type AppointmentResource struct {
	ID            int   `gorm:"primaryKey"`
	AppointmentID int   `gorm:"not null;uniqueIndex:idx_appointment_resource"`
	ResourceID    int   `gorm:"not null;uniqueIndex:idx_appointment_resource"` // References: resources(id)
	CreatedAt     int64 `gorm:"not null"`
}
