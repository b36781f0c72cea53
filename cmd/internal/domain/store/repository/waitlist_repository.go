package repository

import (
	"errors"

	"gorm.io/gorm"

	"medsched/cmd/internal/domain/entity"
)

type DefaultWaitlistRepository struct {
	db *gorm.DB
}

func NewWaitlistRepository(db *gorm.DB) *DefaultWaitlistRepository {
	return &DefaultWaitlistRepository{db: db}
}

func (w *DefaultWaitlistRepository) FindByID(id int) (*entity.WaitlistEntry, error) {
	var entry entity.WaitlistEntry
	err := w.db.First(&entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &entry, err
}

func (w *DefaultWaitlistRepository) FindByRef(ref string) (*entity.WaitlistEntry, error) {
	var entry entity.WaitlistEntry
	err := w.db.Where("ref = ?", ref).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &entry, err
}

func (w *DefaultWaitlistRepository) List(status string, employeeID int) ([]*entity.WaitlistEntry, error) {
	q := w.db.Model(&entity.WaitlistEntry{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if employeeID != 0 {
		q = q.Where("employee_id = ?", employeeID)
	}

	var entries []*entity.WaitlistEntry
	err := q.Order("queued_at asc").Find(&entries).Error
	return entries, err
}

// FindPendingMatches returns pending entries that could take a freed slot on
// the given employee/date, oldest queued first. Entries without an employee
// preference match any employee. Time-window fit is checked by the caller.
func (w *DefaultWaitlistRepository) FindPendingMatches(employeeID int, date string) ([]*entity.WaitlistEntry, error) {
	var entries []*entity.WaitlistEntry
	err := w.db.
		Where("status = ?", entity.WaitlistPending).
		Where("employee_id IS NULL OR employee_id = ?", employeeID).
		Where("date_from <= ?", date).
		Where("date_to >= ?", date).
		Order("queued_at asc").
		Find(&entries).Error
	return entries, err
}

// FindExpiredOffers returns offered entries whose confirmation window has
// lapsed as of now (epoch millis).
func (w *DefaultWaitlistRepository) FindExpiredOffers(now int64) ([]*entity.WaitlistEntry, error) {
	var entries []*entity.WaitlistEntry
	err := w.db.
		Where("status = ?", entity.WaitlistOffered).
		Where("offer_expires_at <= ?", now).
		Find(&entries).Error
	return entries, err
}

func (w *DefaultWaitlistRepository) Save(entry *entity.WaitlistEntry) error {
	return w.db.Save(entry).Error
}

// Transition updates an entry's row only if it is still in fromStatus,
// reporting whether the guard held. This is what makes "resolved exactly
// once" stick under concurrent confirm/expire/cancel.
func (w *DefaultWaitlistRepository) Transition(entry *entity.WaitlistEntry, fromStatus string) (bool, error) {
	res := w.db.Model(&entity.WaitlistEntry{}).
		Where("id = ?", entry.ID).
		Where("status = ?", fromStatus).
		Select("status", "queued_at", "offered_employee_id", "offered_date", "offered_start_min", "offered_end_min", "offer_expires_at", "updated_at").
		Updates(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
