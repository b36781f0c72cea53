package entity

// Waitlist entry statuses. An entry is resolved (booked, expired or
// cancelled) exactly once; offered entries revert to pending when the offer
// lapses.
const (
	WaitlistPending   = "pending"
	WaitlistOffered   = "offered"
	WaitlistBooked    = "booked"
	WaitlistExpired   = "expired"
	WaitlistCancelled = "cancelled"
)

// WaitlistEntry is a patient's standing request for a slot that was not
// available at request time. QueuedAt orders entries first-come-first-served
// and is reset when an expired offer re-queues the entry behind newer ones.
type WaitlistEntry struct {
	ID             int    `gorm:"primaryKey"`
	Ref            string `gorm:"not null;uniqueIndex;size:36"`
	PatientID      int    `gorm:"not null;index"`
	EmployeeID     *int   `gorm:"index"` // nil means any employee
	DateFrom       string `gorm:"not null;size:10"`
	DateTo         string `gorm:"not null;size:10"`
	WindowStartMin int    `gorm:"not null"`
	WindowEndMin   int    `gorm:"not null"`
	DurationMin    int    `gorm:"not null"`
	Status         string `gorm:"not null;size:20;index"`
	QueuedAt       int64  `gorm:"not null;index"`

	// Populated while Status == offered.
	OfferedEmployeeID *int
	OfferedDate       *string `gorm:"size:10"`
	OfferedStartMin   *int
	OfferedEndMin     *int
	OfferExpiresAt    *int64

	CreatedAt int64 `gorm:"not null"`
	UpdatedAt int64 `gorm:"not null"`

	// Relations
	Patient Patient `gorm:"foreignKey:PatientID;references:ID"`
}

func (w *WaitlistEntry) IsResolved() bool {
	switch w.Status {
	case WaitlistBooked, WaitlistExpired, WaitlistCancelled:
		return true
	}
	return false
}
