package entity

// Reminder tiers, as lead time before the appointment start.
const (
	Tier24h = "24h"
	Tier3h  = "3h"
	Tier1h  = "1h"
)

// ReminderLog records that a reminder tier was sent for an appointment. The
// unique (appointment, tier) index makes the sweep idempotent: a second run
// cannot insert a second row, so it cannot send a second notification.
type ReminderLog struct {
	ID            int    `gorm:"primaryKey"`
	AppointmentID int    `gorm:"not null;uniqueIndex:idx_reminder_appointment_tier"`
	Tier          string `gorm:"not null;size:8;uniqueIndex:idx_reminder_appointment_tier"`
	SentAt        int64  `gorm:"not null"`
}

// PushSubscription is a patient's web-push delivery target. The endpoint is
// the natural key; expired endpoints (HTTP 410) are removed by the sender.
type PushSubscription struct {
	Endpoint  string `gorm:"primaryKey;size:512"`
	PatientID int    `gorm:"not null;index"`
	P256DH    string `gorm:"not null"`
	Auth      string `gorm:"not null"`
	CreatedAt int64  `gorm:"not null"`
}
