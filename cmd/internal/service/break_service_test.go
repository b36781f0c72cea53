package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"medsched/cmd/internal/domain/store/repository"
	"medsched/cmd/internal/utils/apierror"
)

func newBreakService(db *gorm.DB) *DefaultBreakService {
	return NewBreakService(repository.NewBreakRepository(db), repository.NewEmployeeRepository(db), newValidator())
}

func TestCreateBreak(t *testing.T) {
	t.Run("creates a recurring break", func(t *testing.T) {
		db := newTestDB(t)
		emp := seedEmployee(t, db)
		svc := newBreakService(db)

		resp, apierr := svc.CreateBreak(&BreakRequest{
			EmployeeID: emp.ID,
			BreakType:  "lunch",
			StartTime:  "13:00",
			EndTime:    "14:00",
		})
		require.Nil(t, apierr)
		assert.True(t, resp.Recurring)
		assert.Nil(t, resp.Date)
		assert.Equal(t, "13:00", resp.StartTime)
	})

	t.Run("creates a dated break", func(t *testing.T) {
		db := newTestDB(t)
		emp := seedEmployee(t, db)
		svc := newBreakService(db)

		date := "2030-06-03"
		resp, apierr := svc.CreateBreak(&BreakRequest{
			EmployeeID: emp.ID,
			BreakType:  "meeting",
			Date:       &date,
			StartTime:  "10:00",
			EndTime:    "11:00",
		})
		require.Nil(t, apierr)
		assert.False(t, resp.Recurring)
		require.NotNil(t, resp.Date)
		assert.Equal(t, date, *resp.Date)
	})

	t.Run("rejects overlap with a recurring break", func(t *testing.T) {
		db := newTestDB(t)
		emp := seedEmployee(t, db)
		svc := newBreakService(db)

		_, apierr := svc.CreateBreak(&BreakRequest{
			EmployeeID: emp.ID, BreakType: "lunch", StartTime: "13:00", EndTime: "14:00",
		})
		require.Nil(t, apierr)

		// A dated break inside the recurring lunch collides on any date.
		date := "2030-06-03"
		_, apierr = svc.CreateBreak(&BreakRequest{
			EmployeeID: emp.ID, BreakType: "meeting", Date: &date, StartTime: "13:30", EndTime: "14:30",
		})
		require.NotNil(t, apierr)
		assert.Equal(t, 400, apierr.Code())
	})

	t.Run("dated breaks on different dates do not collide", func(t *testing.T) {
		db := newTestDB(t)
		emp := seedEmployee(t, db)
		svc := newBreakService(db)

		monday, tuesday := "2030-06-03", "2030-06-04"
		_, apierr := svc.CreateBreak(&BreakRequest{
			EmployeeID: emp.ID, BreakType: "meeting", Date: &monday, StartTime: "10:00", EndTime: "11:00",
		})
		require.Nil(t, apierr)

		_, apierr = svc.CreateBreak(&BreakRequest{
			EmployeeID: emp.ID, BreakType: "meeting", Date: &tuesday, StartTime: "10:00", EndTime: "11:00",
		})
		assert.Nil(t, apierr)
	})

	t.Run("rejects an unknown break type", func(t *testing.T) {
		db := newTestDB(t)
		emp := seedEmployee(t, db)
		svc := newBreakService(db)

		_, apierr := svc.CreateBreak(&BreakRequest{
			EmployeeID: emp.ID, BreakType: "nap", StartTime: "13:00", EndTime: "14:00",
		})
		require.NotNil(t, apierr)
		assert.Equal(t, 400, apierr.Code())
	})
}

func TestGetAndDeleteBreaks(t *testing.T) {
	db := newTestDB(t)
	emp := seedEmployee(t, db)
	svc := newBreakService(db)

	date := "2030-06-03"
	_, apierr := svc.CreateBreak(&BreakRequest{
		EmployeeID: emp.ID, BreakType: "lunch", StartTime: "13:00", EndTime: "14:00",
	})
	require.Nil(t, apierr)
	dated, apierr := svc.CreateBreak(&BreakRequest{
		EmployeeID: emp.ID, BreakType: "meeting", Date: &date, StartTime: "10:00", EndTime: "11:00",
	})
	require.Nil(t, apierr)

	// Another date sees only the recurring break.
	breaks, apierr := svc.GetBreaks(emp.ID, "2030-06-04")
	require.Nil(t, apierr)
	assert.Len(t, breaks, 1)

	breaks, apierr = svc.GetBreaks(emp.ID, date)
	require.Nil(t, apierr)
	assert.Len(t, breaks, 2)

	require.Nil(t, svc.DeleteBreak(dated.ID))
	assert.Equal(t, apierror.NotFoundError, svc.DeleteBreak(dated.ID))

	breaks, apierr = svc.GetBreaks(emp.ID, date)
	require.Nil(t, apierr)
	assert.Len(t, breaks, 1)
}
