package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medsched/cmd/internal/domain/entity"
)

type DefaultReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *DefaultReminderRepository {
	return &DefaultReminderRepository{db: db}
}

// FindCandidates returns active appointments on the given dates that do not
// yet have a reminder log row for the tier. The sweep narrows these by exact
// start instant afterwards.
func (r *DefaultReminderRepository) FindCandidates(tier string, dates []string) ([]*entity.Appointment, error) {
	var appts []*entity.Appointment
	err := r.db.Model(&entity.Appointment{}).
		Where("date IN ?", dates).
		Where("status IN ?", entity.ActiveStatuses).
		Where("id NOT IN (?)", r.db.Model(&entity.ReminderLog{}).
			Select("appointment_id").
			Where("tier = ?", tier)).
		Order("date asc, start_min asc").
		Find(&appts).Error
	return appts, err
}

// MarkSent records the (appointment, tier) pair and reports whether this call
// inserted it. A concurrent or repeated sweep loses the insert race and gets
// false, so each tier fires at most once per appointment.
func (r *DefaultReminderRepository) MarkSent(appointmentID int, tier string, sentAt int64) (bool, error) {
	rec := entity.ReminderLog{AppointmentID: appointmentID, Tier: tier, SentAt: sentAt}
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
