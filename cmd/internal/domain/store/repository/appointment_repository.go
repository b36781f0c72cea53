package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medsched/cmd/internal/domain/entity"
	"medsched/cmd/internal/domain/schedule"
)

type DefaultAppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *DefaultAppointmentRepository {
	return &DefaultAppointmentRepository{db: db}
}

// AppointmentFilter narrows List queries. Zero values mean "no filter".
type AppointmentFilter struct {
	EmployeeID int
	PatientID  int
	Date       string
	DateFrom   string
	DateTo     string
	Status     string
	ActiveOnly bool
}

func (a *DefaultAppointmentRepository) FindByID(id int) (*entity.Appointment, error) {
	var appt entity.Appointment
	err := a.db.Preload("Resources").First(&appt, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &appt, err
}

func (a *DefaultAppointmentRepository) FindByRef(ref string) (*entity.Appointment, error) {
	var appt entity.Appointment
	err := a.db.Preload("Resources").Where("ref = ?", ref).First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &appt, err
}

func (a *DefaultAppointmentRepository) List(filter AppointmentFilter) ([]*entity.Appointment, error) {
	q := a.db.Model(&entity.Appointment{}).Preload("Resources")
	if filter.EmployeeID != 0 {
		q = q.Where("employee_id = ?", filter.EmployeeID)
	}
	if filter.PatientID != 0 {
		q = q.Where("patient_id = ?", filter.PatientID)
	}
	if filter.Date != "" {
		q = q.Where("date = ?", filter.Date)
	}
	if filter.DateFrom != "" {
		q = q.Where("date >= ?", filter.DateFrom)
	}
	if filter.DateTo != "" {
		q = q.Where("date <= ?", filter.DateTo)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ActiveOnly {
		q = q.Where("status IN ?", entity.ActiveStatuses)
	}

	var appts []*entity.Appointment
	err := q.Order("date asc, start_min asc").Find(&appts).Error
	return appts, err
}

// FindActiveForEmployeeDate returns the appointments occupying an employee's
// calendar on one date, ordered by start time.
func (a *DefaultAppointmentRepository) FindActiveForEmployeeDate(employeeID int, date string) ([]*entity.Appointment, error) {
	return a.List(AppointmentFilter{EmployeeID: employeeID, Date: date, ActiveOnly: true})
}

// Book atomically re-checks availability and inserts the appointment with its
// resource allocations. The conflicting-row reads and the insert share one
// transaction so two concurrent requests cannot both observe "free"; the
// loser surfaces a conflict from the schedule package.
func (a *DefaultAppointmentRepository) Book(appt *entity.Appointment, resourceIDs []int) error {
	return a.db.Transaction(func(tx *gorm.DB) error {
		if err := checkSlotLocked(tx, appt, resourceIDs, 0); err != nil {
			return err
		}
		return insertWithResources(tx, appt, resourceIDs)
	})
}

// Reschedule moves an existing appointment to a new date/time/resource set
// under the same transactional discipline as Book. The appointment's own rows
// are excluded from the overlap checks.
func (a *DefaultAppointmentRepository) Reschedule(appt *entity.Appointment, resourceIDs []int) error {
	return a.db.Transaction(func(tx *gorm.DB) error {
		if err := checkSlotLocked(tx, appt, resourceIDs, appt.ID); err != nil {
			return err
		}
		if err := tx.Where("appointment_id = ?", appt.ID).Delete(&entity.AppointmentResource{}).Error; err != nil {
			return err
		}
		if err := tx.Save(appt).Error; err != nil {
			return err
		}
		return insertResources(tx, appt, resourceIDs)
	})
}

func (a *DefaultAppointmentRepository) Update(appt *entity.Appointment) error {
	return a.db.Save(appt).Error
}

func checkSlotLocked(tx *gorm.DB, appt *entity.Appointment, resourceIDs []int, excludeID int) error {
	req := schedule.Range{Start: appt.StartMin, End: appt.EndMin}

	// Lock the employee row first. The break and appointment reads below may
	// match nothing, in which case FOR UPDATE locks no rows and two concurrent
	// bookings into an empty calendar would both see "free" on postgres; the
	// employee row always exists, so holding it serializes them.
	var employee entity.Employee
	if err := lockForUpdate(tx).First(&employee, appt.EmployeeID).Error; err != nil {
		return err
	}

	var breakRows []*entity.Break
	q := lockForUpdate(tx).
		Where("employee_id = ?", appt.EmployeeID).
		Where("date IS NULL OR date = ?", appt.Date)
	if err := q.Find(&breakRows).Error; err != nil {
		return err
	}
	breaks := make([]schedule.Range, 0, len(breakRows))
	for _, b := range breakRows {
		if b.Occurrence().Matches(appt.Date) {
			breaks = append(breaks, b.Range())
		}
	}

	var busyRows []*entity.Appointment
	q = lockForUpdate(tx).
		Where("employee_id = ?", appt.EmployeeID).
		Where("date = ?", appt.Date).
		Where("status IN ?", entity.ActiveStatuses)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Find(&busyRows).Error; err != nil {
		return err
	}
	busy := make([]schedule.Range, len(busyRows))
	for i, b := range busyRows {
		busy[i] = schedule.Range{Start: b.StartMin, End: b.EndMin}
	}

	resources := make(map[int][]schedule.Range, len(resourceIDs))
	for _, resourceID := range resourceIDs {
		// Same anchoring for resources: two bookings for different employees
		// can conflict only through a shared resource with no prior
		// allocations to lock.
		var resource entity.Resource
		if err := lockForUpdate(tx).First(&resource, resourceID).Error; err != nil {
			return err
		}
		allocs, err := findResourceAllocations(tx, resourceID, appt.Date, excludeID)
		if err != nil {
			return err
		}
		resources[resourceID] = allocs
	}

	return schedule.CheckSlot(req, breaks, busy, resources)
}

// findResourceAllocations returns the time ranges a resource is already
// allocated to on the given date, across all employees.
func findResourceAllocations(tx *gorm.DB, resourceID int, date string, excludeID int) ([]schedule.Range, error) {
	var rows []*entity.Appointment
	q := lockForUpdate(tx).
		Joins("JOIN appointment_resources ar ON ar.appointment_id = appointments.id").
		Where("ar.resource_id = ?", resourceID).
		Where("appointments.date = ?", date).
		Where("appointments.status IN ?", entity.ActiveStatuses)
	if excludeID != 0 {
		q = q.Where("appointments.id <> ?", excludeID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	allocs := make([]schedule.Range, len(rows))
	for i, r := range rows {
		allocs[i] = schedule.Range{Start: r.StartMin, End: r.EndMin}
	}
	return allocs, nil
}

func insertWithResources(tx *gorm.DB, appt *entity.Appointment, resourceIDs []int) error {
	if err := tx.Create(appt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return schedule.ErrSlotTaken
		}
		return err
	}
	return insertResources(tx, appt, resourceIDs)
}

func insertResources(tx *gorm.DB, appt *entity.Appointment, resourceIDs []int) error {
	for _, resourceID := range resourceIDs {
		alloc := entity.AppointmentResource{
			AppointmentID: appt.ID,
			ResourceID:    resourceID,
			CreatedAt:     appt.UpdatedAt,
		}
		if err := tx.Create(&alloc).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return schedule.ErrSlotTaken
			}
			return err
		}
	}
	return nil
}

// lockForUpdate takes row locks on postgres so concurrent bookings for the
// same employee/date serialize. SQLite rejects FOR UPDATE and already
// serializes writers through its single-writer transaction.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
