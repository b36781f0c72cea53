package repository

import (
	"errors"

	"gorm.io/gorm"

	"medsched/cmd/internal/domain/entity"
)

type DefaultBreakRepository struct {
	db *gorm.DB
}

func NewBreakRepository(db *gorm.DB) *DefaultBreakRepository {
	return &DefaultBreakRepository{db: db}
}

func (b *DefaultBreakRepository) FindByID(id int) (*entity.Break, error) {
	var brk entity.Break
	err := b.db.First(&brk, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &brk, err
}

// FindForEmployee lists an employee's breaks. With a date, only breaks
// applying on that date are returned (recurring breaks always apply).
func (b *DefaultBreakRepository) FindForEmployee(employeeID int, date string) ([]*entity.Break, error) {
	q := b.db.Where("employee_id = ?", employeeID)
	if date != "" {
		q = q.Where("date IS NULL OR date = ?", date)
	}

	var breaks []*entity.Break
	err := q.Order("start_min asc").Find(&breaks).Error
	return breaks, err
}

// FindOverlapping returns the employee's breaks overlapping the half-open
// [startMin, endMin) range. With a date, only breaks applying on that date
// are considered; without one, breaks on any date are.
func (b *DefaultBreakRepository) FindOverlapping(employeeID int, date string, startMin, endMin int) ([]*entity.Break, error) {
	q := b.db.
		Where("employee_id = ?", employeeID).
		Where("start_min < ?", endMin).
		Where("end_min > ?", startMin)
	if date != "" {
		q = q.Where("date IS NULL OR date = ?", date)
	}

	var breaks []*entity.Break
	err := q.Find(&breaks).Error
	return breaks, err
}

func (b *DefaultBreakRepository) Save(brk *entity.Break) error {
	return b.db.Save(brk).Error
}

func (b *DefaultBreakRepository) Delete(brk *entity.Break) error {
	return b.db.Delete(brk).Error
}
