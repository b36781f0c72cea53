package service

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"medsched/cmd/internal/domain/entity"
	"medsched/cmd/internal/domain/schedule"
	"medsched/cmd/internal/domain/store"
	"medsched/cmd/internal/domain/store/repository"
	"medsched/cmd/internal/utils"
	"medsched/cmd/internal/utils/apierror"
	"medsched/cmd/internal/utils/validators"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := store.Open(store.Options{DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	return db
}

func newValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("dateonly", validators.IsDateOnly)
	_ = validate.RegisterValidation("clocktime", validators.IsClockTime)
	return validate
}

// recordingResolver captures freed slots handed to the waitlist.
type recordingResolver struct {
	employeeID int
	date       string
	freed      schedule.Range
	calls      int
}

func (r *recordingResolver) ResolveFreedSlot(employeeID int, date string, freed schedule.Range) {
	r.employeeID = employeeID
	r.date = date
	r.freed = freed
	r.calls++
}

func seedEmployee(t *testing.T, db *gorm.DB) *entity.Employee {
	t.Helper()
	now := utils.NowUTC()
	emp := &entity.Employee{FullName: "Dr. Ada Wong", Role: "doctor", SlotStepMinutes: 30, IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.Create(emp).Error)
	return emp
}

func seedPatient(t *testing.T, db *gorm.DB) *entity.Patient {
	t.Helper()
	now := utils.NowUTC()
	patient := &entity.Patient{FullName: "John Doe", IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.Create(patient).Error)
	return patient
}

func newAppointmentService(db *gorm.DB, resolver FreedSlotResolver) *DefaultAppointmentService {
	clinic := ClinicDay{Day: schedule.Range{Start: 540, End: 720}, SlotStepMinutes: 30, Location: time.UTC}
	return NewAppointmentService(
		repository.NewAppointmentRepository(db),
		repository.NewEmployeeRepository(db),
		repository.NewPatientRepository(db),
		repository.NewResourceRepository(db),
		repository.NewBreakRepository(db),
		resolver,
		newValidator(),
		clinic,
	)
}

func TestCreateAppointment(t *testing.T) {
	t.Run("books and returns the appointment", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		svc := newAppointmentService(db, nil)

		resp, apierr := svc.CreateAppointment(&AppointmentRequest{
			EmployeeID: emp.ID,
			PatientID:  patient.ID,
			Date:       "2030-06-03",
			StartTime:  "09:00",
			EndTime:    "09:30",
		})
		require.Nil(t, apierr)
		assert.NotEmpty(t, resp.Ref)
		assert.Equal(t, entity.StatusBooked, resp.Status)
		assert.Equal(t, "09:00", resp.StartTime)
		assert.Equal(t, "09:30", resp.EndTime)
	})

	t.Run("rejects a slot in the past", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		svc := newAppointmentService(db, nil)

		_, apierr := svc.CreateAppointment(&AppointmentRequest{
			EmployeeID: emp.ID,
			PatientID:  patient.ID,
			Date:       "2020-01-01",
			StartTime:  "09:00",
			EndTime:    "09:30",
		})
		assert.Equal(t, apierror.AppointmentInPastError, apierr)
	})

	t.Run("rejects an inverted time range", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		svc := newAppointmentService(db, nil)

		_, apierr := svc.CreateAppointment(&AppointmentRequest{
			EmployeeID: emp.ID,
			PatientID:  patient.ID,
			Date:       "2030-06-03",
			StartTime:  "10:00",
			EndTime:    "09:30",
		})
		assert.Equal(t, apierror.InvalidTimeRangeError, apierr)
	})

	t.Run("maps an employee conflict to 409", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		svc := newAppointmentService(db, nil)

		_, apierr := svc.CreateAppointment(&AppointmentRequest{
			EmployeeID: emp.ID, PatientID: patient.ID,
			Date: "2030-06-03", StartTime: "09:00", EndTime: "10:00",
		})
		require.Nil(t, apierr)

		_, apierr = svc.CreateAppointment(&AppointmentRequest{
			EmployeeID: emp.ID, PatientID: patient.ID,
			Date: "2030-06-03", StartTime: "09:30", EndTime: "10:30",
		})
		require.NotNil(t, apierr)
		assert.Equal(t, apierror.EmployeeBusyError, apierr)
		assert.Equal(t, 409, apierr.Code())
	})

	t.Run("404 for an unknown employee", func(t *testing.T) {
		db := newTestDB(t)
		patient := seedPatient(t, db)
		svc := newAppointmentService(db, nil)

		_, apierr := svc.CreateAppointment(&AppointmentRequest{
			EmployeeID: 99, PatientID: patient.ID,
			Date: "2030-06-03", StartTime: "09:00", EndTime: "09:30",
		})
		assert.Equal(t, apierror.NotFoundError, apierr)
	})
}

func TestUpdateAppointment(t *testing.T) {
	str := func(s string) *string { return &s }

	t.Run("status transitions follow the lifecycle", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		svc := newAppointmentService(db, nil)

		created, apierr := svc.CreateAppointment(&AppointmentRequest{
			EmployeeID: emp.ID, PatientID: patient.ID,
			Date: "2030-06-03", StartTime: "09:00", EndTime: "09:30",
		})
		require.Nil(t, apierr)

		// booked -> done skips confirmation/progress.
		_, apierr = svc.UpdateAppointment(created.ID, &UpdateAppointmentRequest{Status: str(entity.StatusDone)})
		require.NotNil(t, apierr)
		assert.Equal(t, 400, apierr.Code())

		resp, apierr := svc.UpdateAppointment(created.ID, &UpdateAppointmentRequest{Status: str(entity.StatusConfirmed)})
		require.Nil(t, apierr)
		assert.Equal(t, entity.StatusConfirmed, resp.Status)

		resp, apierr = svc.UpdateAppointment(created.ID, &UpdateAppointmentRequest{Status: str(entity.StatusDone)})
		require.Nil(t, apierr)
		assert.Equal(t, entity.StatusDone, resp.Status)
	})

	t.Run("reschedules within the old range", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		svc := newAppointmentService(db, nil)

		created, apierr := svc.CreateAppointment(&AppointmentRequest{
			EmployeeID: emp.ID, PatientID: patient.ID,
			Date: "2030-06-03", StartTime: "09:00", EndTime: "10:00",
		})
		require.Nil(t, apierr)

		resp, apierr := svc.UpdateAppointment(created.ID, &UpdateAppointmentRequest{
			StartTime: str("09:30"),
			EndTime:   str("10:30"),
		})
		require.Nil(t, apierr)
		assert.Equal(t, "09:30", resp.StartTime)
		assert.Equal(t, "10:30", resp.EndTime)
	})
}

func TestCancelAppointment(t *testing.T) {
	db := newTestDB(t)
	emp, patient := seedEmployee(t, db), seedPatient(t, db)
	resolver := &recordingResolver{}
	svc := newAppointmentService(db, resolver)

	created, apierr := svc.CreateAppointment(&AppointmentRequest{
		EmployeeID: emp.ID, PatientID: patient.ID,
		Date: "2030-06-03", StartTime: "09:00", EndTime: "10:00",
	})
	require.Nil(t, apierr)

	require.Nil(t, svc.CancelAppointment(created.ID, "patient request"))

	// The freed slot goes to the waitlist resolver.
	assert.Equal(t, 1, resolver.calls)
	assert.Equal(t, emp.ID, resolver.employeeID)
	assert.Equal(t, "2030-06-03", resolver.date)
	assert.Equal(t, schedule.Range{Start: 540, End: 600}, resolver.freed)

	// Cancelling twice is a 404; the booking no longer occupies the calendar.
	assert.Equal(t, apierror.NotFoundError, svc.CancelAppointment(created.ID, ""))

	appt, err := repository.NewAppointmentRepository(db).FindByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCanceled, appt.Status)
	assert.Equal(t, "patient request", appt.CancellationReason)
}

func TestCancelAppointmentByRef(t *testing.T) {
	db := newTestDB(t)
	emp, patient := seedEmployee(t, db), seedPatient(t, db)
	other := seedPatient(t, db)
	svc := newAppointmentService(db, nil)

	created, apierr := svc.CreateAppointment(&AppointmentRequest{
		EmployeeID: emp.ID, PatientID: patient.ID,
		Date: "2030-06-03", StartTime: "09:00", EndTime: "10:00",
	})
	require.Nil(t, apierr)

	// Another patient's id does not match the booking.
	assert.Equal(t, apierror.NotFoundError, svc.CancelAppointmentByRef(created.Ref, other.ID, ""))
	assert.Nil(t, svc.CancelAppointmentByRef(created.Ref, patient.ID, ""))
}

func TestSearchSlots(t *testing.T) {
	db := newTestDB(t)
	emp, patient := seedEmployee(t, db), seedPatient(t, db)
	svc := newAppointmentService(db, nil)

	// Clinic day 09:00-12:00; one booking 10:00-10:30.
	_, apierr := svc.CreateAppointment(&AppointmentRequest{
		EmployeeID: emp.ID, PatientID: patient.ID,
		Date: "2030-06-03", StartTime: "10:00", EndTime: "10:30",
	})
	require.Nil(t, apierr)

	resp, apierr := svc.SearchSlots(emp.ID, "2030-06-03", "2030-06-03", 30)
	require.Nil(t, apierr)
	require.Len(t, resp.Slots, 5)
	assert.Equal(t, "09:00", resp.Slots[0].StartTime)
	assert.Equal(t, "09:30", resp.Slots[1].StartTime)
	assert.Equal(t, "10:30", resp.Slots[2].StartTime)

	// Recurring lunch break removes its window on every date.
	now := utils.NowUTC()
	require.NoError(t, db.Create(&entity.Break{
		EmployeeID: emp.ID, BreakType: entity.BreakLunch,
		StartMin: 660, EndMin: 720, CreatedAt: now, UpdatedAt: now,
	}).Error)

	resp, apierr = svc.SearchSlots(emp.ID, "2030-06-03", "2030-06-03", 30)
	require.Nil(t, apierr)
	assert.Len(t, resp.Slots, 3)

	// The date range is bounded; month-plus scans are rejected outright.
	_, apierr = svc.SearchSlots(emp.ID, "2030-06-01", "2030-08-01", 30)
	require.NotNil(t, apierr)
	assert.Equal(t, 400, apierr.Code())
}
