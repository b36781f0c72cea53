package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"medsched/cmd/internal/domain/entity"
)

// SchemaMigration is one row of the migration log.
type SchemaMigration struct {
	ID        string `gorm:"primaryKey;size:80"`
	AppliedAt int64  `gorm:"not null"`
}

type migration struct {
	id  string
	run func(tx *gorm.DB) error
}

// migrations run once each, in order. New schema changes append here; IDs are
// never reused.
var migrations = []migration{
	{
		id: "0001_directory",
		run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&entity.Employee{}, &entity.Patient{}, &entity.Resource{})
		},
	},
	{
		id: "0002_appointments",
		run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&entity.Appointment{}, &entity.AppointmentResource{})
		},
	},
	{
		id: "0003_breaks",
		run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&entity.Break{})
		},
	},
	{
		id: "0004_waitlist",
		run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&entity.WaitlistEntry{})
		},
	},
	{
		id: "0005_reminders",
		run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&entity.ReminderLog{}, &entity.PushSubscription{})
		},
	},
}

// Migrate applies pending migrations in order, recording each in the
// schema_migrations log. Already-applied migrations are skipped.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("failed to prepare migration log: %w", err)
	}

	for _, m := range migrations {
		var count int64
		if err := db.Model(&SchemaMigration{}).Where("id = ?", m.id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to read migration log: %w", err)
		}
		if count > 0 {
			continue
		}

		if err := m.run(db); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.id, err)
		}
		record := SchemaMigration{ID: m.id, AppliedAt: time.Now().UTC().UnixMilli()}
		if err := db.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.id, err)
		}
	}
	return nil
}
