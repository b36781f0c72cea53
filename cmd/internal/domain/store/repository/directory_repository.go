package repository

import (
	"errors"

	"gorm.io/gorm"

	"medsched/cmd/internal/domain/entity"
)

type DefaultEmployeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) *DefaultEmployeeRepository {
	return &DefaultEmployeeRepository{db: db}
}

func (e *DefaultEmployeeRepository) FindByID(id int) (*entity.Employee, error) {
	var emp entity.Employee
	err := e.db.First(&emp, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &emp, err
}

func (e *DefaultEmployeeRepository) FindAll(activeOnly bool) ([]*entity.Employee, error) {
	q := e.db.Model(&entity.Employee{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var emps []*entity.Employee
	err := q.Order("full_name asc").Find(&emps).Error
	return emps, err
}

func (e *DefaultEmployeeRepository) Save(emp *entity.Employee) error {
	return e.db.Save(emp).Error
}

type DefaultPatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *DefaultPatientRepository {
	return &DefaultPatientRepository{db: db}
}

func (p *DefaultPatientRepository) FindByID(id int) (*entity.Patient, error) {
	var patient entity.Patient
	err := p.db.First(&patient, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &patient, err
}

func (p *DefaultPatientRepository) Save(patient *entity.Patient) error {
	return p.db.Save(patient).Error
}

type DefaultResourceRepository struct {
	db *gorm.DB
}

func NewResourceRepository(db *gorm.DB) *DefaultResourceRepository {
	return &DefaultResourceRepository{db: db}
}

// FindByIDs returns the active resources among ids; a missing or inactive id
// is simply absent from the result.
func (r *DefaultResourceRepository) FindByIDs(ids []int) ([]*entity.Resource, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var resources []*entity.Resource
	err := r.db.Where("id IN ?", ids).Where("is_active = ?", true).Find(&resources).Error
	return resources, err
}
