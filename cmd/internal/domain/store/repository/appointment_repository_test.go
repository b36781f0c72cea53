package repository

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"medsched/cmd/internal/domain/entity"
	"medsched/cmd/internal/domain/schedule"
	"medsched/cmd/internal/domain/store"
	"medsched/cmd/internal/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := store.Open(store.Options{DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	return db
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
	patient := &entity.Patient{FullName: "John Doe", Phone: "+100000000", IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.Create(patient).Error)
	return patient
}

func seedResource(t *testing.T, db *gorm.DB, name string) *entity.Resource {
	t.Helper()
	now := utils.NowUTC()
	res := &entity.Resource{Name: name, Kind: entity.ResourceRoom, IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.Create(res).Error)
	return res
}

func mkAppt(ref string, employeeID, patientID int, date string, startMin, endMin int) *entity.Appointment {
	now := utils.NowUTC()
	return &entity.Appointment{
		Ref:        ref,
		EmployeeID: employeeID,
		PatientID:  patientID,
		Date:       date,
		StartMin:   startMin,
		EndMin:     endMin,
		Status:     entity.StatusBooked,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestBook(t *testing.T) {
	t.Run("books a free slot", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		repo := NewAppointmentRepository(db)

		appt := mkAppt("a1", emp.ID, patient.ID, "2030-06-03", 540, 570)
		require.NoError(t, repo.Book(appt, nil))
		assert.NotZero(t, appt.ID)
	})

	t.Run("rejects an overlapping booking", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		repo := NewAppointmentRepository(db)

		require.NoError(t, repo.Book(mkAppt("a1", emp.ID, patient.ID, "2030-06-03", 540, 600), nil))
		err := repo.Book(mkAppt("a2", emp.ID, patient.ID, "2030-06-03", 570, 630), nil)
		assert.ErrorIs(t, err, schedule.ErrEmployeeBusy)
	})

	t.Run("allows back-to-back bookings", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		repo := NewAppointmentRepository(db)

		require.NoError(t, repo.Book(mkAppt("a1", emp.ID, patient.ID, "2030-06-03", 540, 600), nil))
		assert.NoError(t, repo.Book(mkAppt("a2", emp.ID, patient.ID, "2030-06-03", 600, 660), nil))
	})

	t.Run("canceled appointments do not block", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		repo := NewAppointmentRepository(db)

		old := mkAppt("a1", emp.ID, patient.ID, "2030-06-03", 540, 600)
		require.NoError(t, repo.Book(old, nil))
		old.Status = entity.StatusCanceled
		require.NoError(t, repo.Update(old))

		assert.NoError(t, repo.Book(mkAppt("a2", emp.ID, patient.ID, "2030-06-03", 540, 600), nil))
	})

	t.Run("recurring break blocks every date", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		repo := NewAppointmentRepository(db)

		// Daily lunch 13:00-14:00.
		now := utils.NowUTC()
		require.NoError(t, db.Create(&entity.Break{
			EmployeeID: emp.ID, BreakType: entity.BreakLunch,
			StartMin: 780, EndMin: 840, CreatedAt: now, UpdatedAt: now,
		}).Error)

		err := repo.Book(mkAppt("a1", emp.ID, patient.ID, "2030-06-03", 810, 840), nil)
		assert.ErrorIs(t, err, schedule.ErrBreakConflict)

		err = repo.Book(mkAppt("a2", emp.ID, patient.ID, "2031-01-20", 770, 790), nil)
		assert.ErrorIs(t, err, schedule.ErrBreakConflict)

		// 14:00 onward is fine.
		assert.NoError(t, repo.Book(mkAppt("a3", emp.ID, patient.ID, "2030-06-03", 840, 900), nil))
	})

	t.Run("dated break blocks only its date", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		repo := NewAppointmentRepository(db)

		date := "2030-06-03"
		now := utils.NowUTC()
		require.NoError(t, db.Create(&entity.Break{
			EmployeeID: emp.ID, BreakType: entity.BreakMeeting, Date: &date,
			StartMin: 600, EndMin: 660, CreatedAt: now, UpdatedAt: now,
		}).Error)

		err := repo.Book(mkAppt("a1", emp.ID, patient.ID, "2030-06-03", 600, 630), nil)
		assert.ErrorIs(t, err, schedule.ErrBreakConflict)
		assert.NoError(t, repo.Book(mkAppt("a2", emp.ID, patient.ID, "2030-06-04", 600, 630), nil))
	})

	t.Run("resource conflicts cross employees", func(t *testing.T) {
		db := newTestDB(t)
		emp1, patient := seedEmployee(t, db), seedPatient(t, db)
		emp2 := seedEmployee(t, db)
		room := seedResource(t, db, "Room 1")
		repo := NewAppointmentRepository(db)

		require.NoError(t, repo.Book(mkAppt("a1", emp1.ID, patient.ID, "2030-06-03", 540, 600), []int{room.ID}))

		err := repo.Book(mkAppt("a2", emp2.ID, patient.ID, "2030-06-03", 570, 630), []int{room.ID})
		assert.ErrorIs(t, err, schedule.ErrResourceBusy)

		var busyErr *schedule.ResourceBusyError
		require.ErrorAs(t, err, &busyErr)
		assert.Equal(t, room.ID, busyErr.ResourceID)

		// Same slot without the room is fine for the other employee.
		assert.NoError(t, repo.Book(mkAppt("a3", emp2.ID, patient.ID, "2030-06-03", 570, 630), nil))
	})

	t.Run("requires the employee and resource rows to exist", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		repo := NewAppointmentRepository(db)

		// The transaction anchors its locks on the employee and resource
		// rows, so booking against rows that are not there fails outright.
		err := repo.Book(mkAppt("a1", 999, patient.ID, "2030-06-03", 540, 570), nil)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

		err = repo.Book(mkAppt("a2", emp.ID, patient.ID, "2030-06-03", 540, 570), []int{999})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("exactly one of two concurrent bookings wins", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		repo := NewAppointmentRepository(db)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ref := "c1"
				if i == 1 {
					ref = "c2"
				}
				errs[i] = repo.Book(mkAppt(ref, emp.ID, patient.ID, "2030-06-03", 540, 600), nil)
			}(i)
		}
		wg.Wait()

		failures := 0
		for _, err := range errs {
			if err != nil {
				failures++
				assert.ErrorIs(t, err, schedule.ErrEmployeeBusy)
			}
		}
		assert.Equal(t, 1, failures)
	})
}

func TestReschedule(t *testing.T) {
	t.Run("moving within the old range is allowed", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		repo := NewAppointmentRepository(db)

		appt := mkAppt("a1", emp.ID, patient.ID, "2030-06-03", 540, 600)
		require.NoError(t, repo.Book(appt, nil))

		appt.StartMin, appt.EndMin = 570, 630
		assert.NoError(t, repo.Reschedule(appt, nil))
	})

	t.Run("still conflicts with other bookings", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		repo := NewAppointmentRepository(db)

		require.NoError(t, repo.Book(mkAppt("a1", emp.ID, patient.ID, "2030-06-03", 600, 660), nil))
		appt := mkAppt("a2", emp.ID, patient.ID, "2030-06-03", 540, 600)
		require.NoError(t, repo.Book(appt, nil))

		appt.StartMin, appt.EndMin = 570, 630
		assert.ErrorIs(t, repo.Reschedule(appt, nil), schedule.ErrEmployeeBusy)
	})

	t.Run("swaps resource allocations", func(t *testing.T) {
		db := newTestDB(t)
		emp, patient := seedEmployee(t, db), seedPatient(t, db)
		room1 := seedResource(t, db, "Room 1")
		room2 := seedResource(t, db, "Room 2")
		repo := NewAppointmentRepository(db)

		appt := mkAppt("a1", emp.ID, patient.ID, "2030-06-03", 540, 600)
		require.NoError(t, repo.Book(appt, []int{room1.ID}))
		require.NoError(t, repo.Reschedule(appt, []int{room2.ID}))

		got, err := repo.FindByID(appt.ID)
		require.NoError(t, err)
		require.Len(t, got.Resources, 1)
		assert.Equal(t, room2.ID, got.Resources[0].ResourceID)
	})
}

func TestList(t *testing.T) {
	db := newTestDB(t)
	emp, patient := seedEmployee(t, db), seedPatient(t, db)
	repo := NewAppointmentRepository(db)

	require.NoError(t, repo.Book(mkAppt("a1", emp.ID, patient.ID, "2030-06-03", 600, 660), nil))
	require.NoError(t, repo.Book(mkAppt("a2", emp.ID, patient.ID, "2030-06-03", 540, 600), nil))
	require.NoError(t, repo.Book(mkAppt("a3", emp.ID, patient.ID, "2030-06-05", 540, 600), nil))

	appts, err := repo.List(AppointmentFilter{EmployeeID: emp.ID, DateFrom: "2030-06-03", DateTo: "2030-06-04"})
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, "a2", appts[0].Ref) // ordered by date, start time
	assert.Equal(t, "a1", appts[1].Ref)
}
