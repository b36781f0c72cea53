package service

import (
	"time"

	"github.com/labstack/gommon/log"

	"medsched/cmd/internal/domain/entity"
	"medsched/cmd/internal/domain/schedule"
	"medsched/cmd/internal/utils"
)

type ReminderRepository interface {
	FindCandidates(tier string, dates []string) ([]*entity.Appointment, error)
	MarkSent(appointmentID int, tier string, sentAt int64) (bool, error)
}

// reminderTiers maps each tier to its lead time before the appointment start.
var reminderTiers = []struct {
	Tier   string
	Offset time.Duration
}{
	{entity.Tier24h, 24 * time.Hour},
	{entity.Tier3h, 3 * time.Hour},
	{entity.Tier1h, time.Hour},
}

type DefaultReminderService struct {
	ReminderRepo ReminderRepository
	Location     *time.Location

	// Dispatch delivers one reminder. The reminder log row is written first,
	// so a delivery that never happens is a lost notification, not a retry
	// storm; a crash between the two costs at most one reminder.
	Dispatch func(appt *entity.Appointment, tier string)
}

func NewReminderService(reminderRepo ReminderRepository, location *time.Location, dispatch func(appt *entity.Appointment, tier string)) *DefaultReminderService {
	return &DefaultReminderService{ReminderRepo: reminderRepo, Location: location, Dispatch: dispatch}
}

// Sweep fires every tier whose lead time now covers an appointment's start
// instant. Sweeps are idempotent: the (appointment, tier) log row is inserted
// before dispatch and a lost insert race skips the send, so running the sweep
// twice, or from two processes, sends each reminder once.
func (r *DefaultReminderService) Sweep(now time.Time) {
	for _, tier := range reminderTiers {
		r.sweepTier(now, tier.Tier, tier.Offset)
	}
}

func (r *DefaultReminderService) sweepTier(now time.Time, tier string, offset time.Duration) {
	horizon := now.Add(offset)
	dates := datesBetween(now.In(r.Location), horizon.In(r.Location))

	candidates, err := r.ReminderRepo.FindCandidates(tier, dates)
	if err != nil {
		log.Errorf("reminder sweep %s failed to fetch candidates: %v", tier, err)
		return
	}

	for _, appt := range candidates {
		at, err := schedule.At(appt.Date, appt.StartMin, r.Location)
		if err != nil {
			log.Errorf("reminder sweep %s: appointment %d has unparseable date %q: %v", tier, appt.ID, appt.Date, err)
			continue
		}
		// Fire once the start instant enters the lead window. Starts already
		// in the past get no reminder.
		if at.After(horizon) || !at.After(now) {
			continue
		}

		inserted, err := r.ReminderRepo.MarkSent(appt.ID, tier, utils.NowUTC())
		if err != nil {
			log.Errorf("reminder sweep %s: failed to record appointment %d: %v", tier, appt.ID, err)
			continue
		}
		if !inserted {
			continue
		}
		if r.Dispatch != nil {
			r.Dispatch(appt, tier)
		}
	}
}

// datesBetween lists the calendar dates from one instant's day through
// another's, inclusive, in the instants' location.
func datesBetween(from, to time.Time) []string {
	var dates []string
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	last := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())
	for !day.After(last) {
		dates = append(dates, day.Format("2006-01-02"))
		day = day.AddDate(0, 0, 1)
	}
	return dates
}
