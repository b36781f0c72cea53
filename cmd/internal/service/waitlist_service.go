package service

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"medsched/cmd/internal/domain/entity"
	"medsched/cmd/internal/domain/schedule"
	"medsched/cmd/internal/utils"
	"medsched/cmd/internal/utils/apierror"
)

type WaitlistRepository interface {
	FindByID(id int) (*entity.WaitlistEntry, error)
	FindByRef(ref string) (*entity.WaitlistEntry, error)
	List(status string, employeeID int) ([]*entity.WaitlistEntry, error)
	FindPendingMatches(employeeID int, date string) ([]*entity.WaitlistEntry, error)
	FindExpiredOffers(now int64) ([]*entity.WaitlistEntry, error)
	Save(entry *entity.WaitlistEntry) error
	Transition(entry *entity.WaitlistEntry, fromStatus string) (bool, error)
}

type WaitlistRequest struct {
	PatientID   int    `json:"patient_id" validate:"required"`
	EmployeeID  *int   `json:"employee_id"`
	DateFrom    string `json:"date_from" validate:"required,dateonly"`
	DateTo      string `json:"date_to" validate:"required,dateonly"`
	StartTime   string `json:"start_time" validate:"required,clocktime"`
	EndTime     string `json:"end_time" validate:"required,clocktime"`
	DurationMin int    `json:"duration_min" validate:"required,min=5,max=480"`
}

type WaitlistResponse struct {
	ID          int    `json:"id"`
	Ref         string `json:"ref"`
	PatientID   int    `json:"patient_id"`
	EmployeeID  *int   `json:"employee_id,omitempty"`
	DateFrom    string `json:"date_from"`
	DateTo      string `json:"date_to"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	DurationMin int    `json:"duration_min"`
	Status      string `json:"status"`
	Offer       *SlotResponse `json:"offer,omitempty"`
	OfferExpiresAt string     `json:"offer_expires_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type DefaultWaitlistService struct {
	WaitlistRepo    WaitlistRepository
	AppointmentRepo AppointmentRepository
	PatientRepo     PatientRepository
	Validate        *validator.Validate
	OfferTTL        time.Duration
}

func NewWaitlistService(waitlistRepo WaitlistRepository, apptRepo AppointmentRepository, patientRepo PatientRepository, validate *validator.Validate, offerTTL time.Duration) *DefaultWaitlistService {
	return &DefaultWaitlistService{
		WaitlistRepo:    waitlistRepo,
		AppointmentRepo: apptRepo,
		PatientRepo:     patientRepo,
		Validate:        validate,
		OfferTTL:        offerTTL,
	}
}

func (w *DefaultWaitlistService) GetEntries(status string, employeeID int) ([]*WaitlistResponse, apierror.ErrorResponse) {
	entries, err := w.WaitlistRepo.List(status, employeeID)
	if err != nil {
		log.Errorf("failed to list waitlist entries: %v", err)
		return nil, apierror.InternalServerError
	}

	response := make([]*WaitlistResponse, len(entries))
	for i, entry := range entries {
		response[i] = toWaitlistResponse(entry)
	}
	return response, nil
}

// Join puts a patient on the waitlist for a desired date range and daily time
// window.
func (w *DefaultWaitlistService) Join(req *WaitlistRequest) (*WaitlistResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := w.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	start, err := schedule.ParseClock(req.StartTime)
	if err != nil {
		return nil, apierror.NewInvalidParamTypeError("start_time", "clock time (HH:MM)")
	}
	end, err := schedule.ParseClock(req.EndTime)
	if err != nil {
		return nil, apierror.NewInvalidParamTypeError("end_time", "clock time (HH:MM)")
	}
	window := schedule.Range{Start: start, End: end}
	if !window.Valid() || window.Duration() < req.DurationMin {
		return nil, apierror.InvalidTimeRangeError
	}
	if req.DateTo < req.DateFrom {
		return nil, apierror.InvalidTimeRangeError
	}

	patient, err := w.PatientRepo.FindByID(req.PatientID)
	if err != nil {
		log.Errorf("failed to fetch patient %d: %v", req.PatientID, err)
		return nil, apierror.InternalServerError
	}
	if patient == nil || !patient.IsActive {
		return nil, apierror.NotFoundError
	}

	now := utils.NowUTC()
	entry := &entity.WaitlistEntry{
		Ref:            uuid.NewString(),
		PatientID:      req.PatientID,
		EmployeeID:     req.EmployeeID,
		DateFrom:       req.DateFrom,
		DateTo:         req.DateTo,
		WindowStartMin: start,
		WindowEndMin:   end,
		DurationMin:    req.DurationMin,
		Status:         entity.WaitlistPending,
		QueuedAt:       now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := w.WaitlistRepo.Save(entry); err != nil {
		log.Errorf("failed to save waitlist entry for patient %d: %v", req.PatientID, err)
		return nil, apierror.InternalServerError
	}
	return toWaitlistResponse(entry), nil
}

// ResolveFreedSlot offers a freed slot to the earliest-queued pending entry
// whose preferences it satisfies. Called after cancellations and expired
// offers; failures are logged, never surfaced to the cancelling caller.
func (w *DefaultWaitlistService) ResolveFreedSlot(employeeID int, date string, freed schedule.Range) {
	entries, err := w.WaitlistRepo.FindPendingMatches(employeeID, date)
	if err != nil {
		log.Errorf("failed to scan waitlist for employee %d on %s: %v", employeeID, date, err)
		return
	}

	for _, entry := range entries {
		offer, ok := offerFor(entry, freed)
		if !ok {
			continue
		}

		now := utils.NowUTC()
		expires := now + w.OfferTTL.Milliseconds()
		entry.Status = entity.WaitlistOffered
		entry.OfferedEmployeeID = &employeeID
		entry.OfferedDate = &date
		entry.OfferedStartMin = &offer.Start
		entry.OfferedEndMin = &offer.End
		entry.OfferExpiresAt = &expires
		entry.UpdatedAt = now

		ok, err := w.WaitlistRepo.Transition(entry, entity.WaitlistPending)
		if err != nil {
			log.Errorf("failed to offer waitlist entry %d: %v", entry.ID, err)
			return
		}
		if ok {
			log.Infof("offered slot %s %s to waitlist entry %d", date, offer, entry.ID)
			return
		}
		// Entry moved under us; try the next one.
	}
}

// Confirm books the offered slot for the entry. The booking runs through the
// same atomic path as a direct booking, so a slot grabbed in the meantime
// surfaces as SLOT_TAKEN and the entry returns to pending.
func (w *DefaultWaitlistService) Confirm(ref string) (*AppointmentResponse, apierror.ErrorResponse) {
	entry, err := w.WaitlistRepo.FindByRef(ref)
	if err != nil {
		log.Errorf("failed to fetch waitlist entry %s: %v", ref, err)
		return nil, apierror.InternalServerError
	}
	if entry == nil {
		return nil, apierror.NotFoundError
	}
	if entry.Status != entity.WaitlistOffered || entry.OfferedDate == nil || entry.OfferedEmployeeID == nil {
		return nil, apierror.OfferNotActiveError
	}

	now := utils.NowUTC()
	if entry.OfferExpiresAt != nil && *entry.OfferExpiresAt <= now {
		return nil, apierror.OfferNotActiveError
	}

	appt := &entity.Appointment{
		Ref:        uuid.NewString(),
		EmployeeID: *entry.OfferedEmployeeID,
		PatientID:  entry.PatientID,
		Date:       *entry.OfferedDate,
		StartMin:   *entry.OfferedStartMin,
		EndMin:     *entry.OfferedEndMin,
		Status:     entity.StatusBooked,
		Note:       "Booked from waitlist",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := w.AppointmentRepo.Book(appt, nil); err != nil {
		if !isSlotConflict(err) {
			// Storage fault, not a lost slot; the offer stays active so the
			// patient can retry.
			log.Errorf("failed to book offered slot for waitlist entry %d: %v", entry.ID, err)
			return nil, apierror.InternalServerError
		}
		w.requeue(entry, entry.QueuedAt)
		return nil, apierror.SlotTakenError
	}

	entry.Status = entity.WaitlistBooked
	entry.UpdatedAt = utils.NowUTC()
	if ok, err := w.WaitlistRepo.Transition(entry, entity.WaitlistOffered); err != nil || !ok {
		// The appointment exists either way; the entry state is what's racing.
		log.Errorf("failed to mark waitlist entry %d booked: %v", entry.ID, err)
	}
	return toAppointmentResponse(appt), nil
}

// Cancel resolves an unresolved entry as cancelled.
func (w *DefaultWaitlistService) Cancel(id int) apierror.ErrorResponse {
	entry, err := w.WaitlistRepo.FindByID(id)
	if err != nil {
		log.Errorf("failed to fetch waitlist entry %d: %v", id, err)
		return apierror.InternalServerError
	}
	if entry == nil {
		return apierror.NotFoundError
	}
	if entry.IsResolved() {
		return apierror.WaitlistResolvedError
	}

	fromStatus := entry.Status
	entry.Status = entity.WaitlistCancelled
	entry.UpdatedAt = utils.NowUTC()
	ok, err := w.WaitlistRepo.Transition(entry, fromStatus)
	if err != nil {
		log.Errorf("failed to cancel waitlist entry %d: %v", id, err)
		return apierror.InternalServerError
	}
	if !ok {
		return apierror.WaitlistResolvedError
	}
	return nil
}

// Sweep expires lapsed offers (re-queueing the entry behind newer ones) and
// hands each lapsed slot to the next match. Entries whose whole date range is
// in the past resolve as expired.
func (w *DefaultWaitlistService) Sweep(now time.Time, today string) {
	lapsed, err := w.WaitlistRepo.FindExpiredOffers(now.UTC().UnixMilli())
	if err != nil {
		log.Errorf("failed to scan expired waitlist offers: %v", err)
		return
	}

	for _, entry := range lapsed {
		employeeID := entry.OfferedEmployeeID
		date := entry.OfferedDate
		startMin := entry.OfferedStartMin
		endMin := entry.OfferedEndMin

		if entry.DateTo < today {
			entry.Status = entity.WaitlistExpired
			entry.UpdatedAt = utils.NowUTC()
			if _, err := w.WaitlistRepo.Transition(entry, entity.WaitlistOffered); err != nil {
				log.Errorf("failed to expire waitlist entry %d: %v", entry.ID, err)
			}
		} else {
			w.requeue(entry, utils.NowUTC())
		}

		if employeeID != nil && date != nil && startMin != nil && endMin != nil {
			w.ResolveFreedSlot(*employeeID, *date, schedule.Range{Start: *startMin, End: *endMin})
		}
	}
}

// requeue reverts an offered entry to pending. queuedAt decides its new
// position: keeping the old value preserves the place in line, a fresh value
// moves the entry behind newer entries.
func (w *DefaultWaitlistService) requeue(entry *entity.WaitlistEntry, queuedAt int64) {
	entry.Status = entity.WaitlistPending
	entry.QueuedAt = queuedAt
	entry.OfferedEmployeeID = nil
	entry.OfferedDate = nil
	entry.OfferedStartMin = nil
	entry.OfferedEndMin = nil
	entry.OfferExpiresAt = nil
	entry.UpdatedAt = utils.NowUTC()
	if _, err := w.WaitlistRepo.Transition(entry, entity.WaitlistOffered); err != nil {
		log.Errorf("failed to requeue waitlist entry %d: %v", entry.ID, err)
	}
}

// isSlotConflict reports whether a booking failure means the slot is gone.
func isSlotConflict(err error) bool {
	return errors.Is(err, schedule.ErrBreakConflict) ||
		errors.Is(err, schedule.ErrEmployeeBusy) ||
		errors.Is(err, schedule.ErrResourceBusy) ||
		errors.Is(err, schedule.ErrSlotTaken)
}

// offerFor fits the entry's desired window and duration into the freed range.
func offerFor(entry *entity.WaitlistEntry, freed schedule.Range) (schedule.Range, bool) {
	window := schedule.Range{Start: entry.WindowStartMin, End: entry.WindowEndMin}
	start := max(freed.Start, window.Start)
	end := min(freed.End, window.End)
	if end-start < entry.DurationMin {
		return schedule.Range{}, false
	}
	return schedule.Range{Start: start, End: start + entry.DurationMin}, true
}

func toWaitlistResponse(entry *entity.WaitlistEntry) *WaitlistResponse {
	resp := &WaitlistResponse{
		ID:          entry.ID,
		Ref:         entry.Ref,
		PatientID:   entry.PatientID,
		EmployeeID:  entry.EmployeeID,
		DateFrom:    entry.DateFrom,
		DateTo:      entry.DateTo,
		StartTime:   schedule.FormatClock(entry.WindowStartMin),
		EndTime:     schedule.FormatClock(entry.WindowEndMin),
		DurationMin: entry.DurationMin,
		Status:      entry.Status,
		CreatedAt:   utils.FormatEpoch(entry.CreatedAt),
	}
	if entry.Status == entity.WaitlistOffered && entry.OfferedDate != nil {
		resp.Offer = &SlotResponse{
			Date:      *entry.OfferedDate,
			StartTime: schedule.FormatClock(*entry.OfferedStartMin),
			EndTime:   schedule.FormatClock(*entry.OfferedEndMin),
		}
		if entry.OfferExpiresAt != nil {
			resp.OfferExpiresAt = utils.FormatEpoch(*entry.OfferExpiresAt)
		}
	}
	return resp
}
