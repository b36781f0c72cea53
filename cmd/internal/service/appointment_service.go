package service

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"medsched/cmd/internal/domain/entity"
	"medsched/cmd/internal/domain/schedule"
	"medsched/cmd/internal/domain/store/repository"
	"medsched/cmd/internal/utils"
	"medsched/cmd/internal/utils/apierror"
)

type AppointmentRepository interface {
	FindByID(id int) (*entity.Appointment, error)
	FindByRef(ref string) (*entity.Appointment, error)
	List(filter repository.AppointmentFilter) ([]*entity.Appointment, error)
	FindActiveForEmployeeDate(employeeID int, date string) ([]*entity.Appointment, error)
	Book(appt *entity.Appointment, resourceIDs []int) error
	Reschedule(appt *entity.Appointment, resourceIDs []int) error
	Update(appt *entity.Appointment) error
}

type EmployeeRepository interface {
	FindByID(id int) (*entity.Employee, error)
	FindAll(activeOnly bool) ([]*entity.Employee, error)
}

type PatientRepository interface {
	FindByID(id int) (*entity.Patient, error)
}

type ResourceRepository interface {
	FindByIDs(ids []int) ([]*entity.Resource, error)
}

type BreakRepository interface {
	FindByID(id int) (*entity.Break, error)
	FindForEmployee(employeeID int, date string) ([]*entity.Break, error)
	FindOverlapping(employeeID int, date string, startMin, endMin int) ([]*entity.Break, error)
	Save(brk *entity.Break) error
	Delete(brk *entity.Break) error
}

// FreedSlotResolver is notified when a cancellation frees calendar time, so
// the waitlist can offer it to the next matching entry.
type FreedSlotResolver interface {
	ResolveFreedSlot(employeeID int, date string, freed schedule.Range)
}

// ClinicDay describes the bookable day used for slot search.
type ClinicDay struct {
	Day             schedule.Range
	SlotStepMinutes int
	Location        *time.Location
}

type AppointmentRequest struct {
	EmployeeID  int    `json:"employee_id" validate:"required"`
	PatientID   int    `json:"patient_id" validate:"required"`
	Date        string `json:"date" validate:"required,dateonly"`
	StartTime   string `json:"start_time" validate:"required,clocktime"`
	EndTime     string `json:"end_time" validate:"required,clocktime"`
	ResourceIDs []int  `json:"resource_ids" validate:"max=10"`
	Note        string `json:"note" validate:"max=500"`
}

type UpdateAppointmentRequest struct {
	Status      *string `json:"status" validate:"omitempty,oneof=confirmed in_progress done no_show"`
	Date        *string `json:"date" validate:"omitempty,dateonly"`
	StartTime   *string `json:"start_time" validate:"omitempty,clocktime"`
	EndTime     *string `json:"end_time" validate:"omitempty,clocktime"`
	ResourceIDs *[]int  `json:"resource_ids" validate:"omitempty,max=10"`
	Note        *string `json:"note" validate:"omitempty,max=500"`
}

type AppointmentResponse struct {
	ID          int    `json:"id"`
	Ref         string `json:"ref"`
	EmployeeID  int    `json:"employee_id"`
	PatientID   int    `json:"patient_id"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Status      string `json:"status"`
	Note        string `json:"note,omitempty"`
	ResourceIDs []int  `json:"resource_ids,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type SlotResponse struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type SlotSearchResponse struct {
	EmployeeID int             `json:"employee_id"`
	Slots      []*SlotResponse `json:"slots"`
}

type AppointmentListFilter struct {
	EmployeeID int
	PatientID  int
	Date       string
	DateFrom   string
	DateTo     string
	Status     string
}

type DefaultAppointmentService struct {
	AppointmentRepo AppointmentRepository
	EmployeeRepo    EmployeeRepository
	PatientRepo     PatientRepository
	ResourceRepo    ResourceRepository
	BreakRepo       BreakRepository
	Resolver        FreedSlotResolver
	Validate        *validator.Validate
	Clinic          ClinicDay
}

func NewAppointmentService(
	apptRepo AppointmentRepository,
	employeeRepo EmployeeRepository,
	patientRepo PatientRepository,
	resourceRepo ResourceRepository,
	breakRepo BreakRepository,
	resolver FreedSlotResolver,
	validate *validator.Validate,
	clinic ClinicDay,
) *DefaultAppointmentService {
	return &DefaultAppointmentService{
		AppointmentRepo: apptRepo,
		EmployeeRepo:    employeeRepo,
		PatientRepo:     patientRepo,
		ResourceRepo:    resourceRepo,
		BreakRepo:       breakRepo,
		Resolver:        resolver,
		Validate:        validate,
		Clinic:          clinic,
	}
}

func (a *DefaultAppointmentService) GetAppointments(filter AppointmentListFilter) ([]*AppointmentResponse, apierror.ErrorResponse) {
	appts, err := a.AppointmentRepo.List(repository.AppointmentFilter{
		EmployeeID: filter.EmployeeID,
		PatientID:  filter.PatientID,
		Date:       filter.Date,
		DateFrom:   filter.DateFrom,
		DateTo:     filter.DateTo,
		Status:     filter.Status,
	})
	if err != nil {
		log.Errorf("failed to list appointments: %v", err)
		return nil, apierror.InternalServerError
	}

	response := make([]*AppointmentResponse, len(appts))
	for i, appt := range appts {
		response[i] = toAppointmentResponse(appt)
	}
	return response, nil
}

// CreateAppointment books a slot. The availability check and the insert run
// as one transaction in the repository; a lost race comes back as a conflict,
// not a double booking.
func (a *DefaultAppointmentService) CreateAppointment(req *AppointmentRequest) (*AppointmentResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := a.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	date, slot, apierr := a.parseSlot(req.Date, req.StartTime, req.EndTime)
	if apierr != nil {
		return nil, apierr
	}

	if !a.isFuture(date, slot.Start) {
		return nil, apierror.AppointmentInPastError
	}

	employee, apierr := a.fetchEmployee(req.EmployeeID)
	if apierr != nil {
		return nil, apierr
	}
	if _, apierr = a.fetchPatient(req.PatientID); apierr != nil {
		return nil, apierr
	}
	if apierr = a.checkResources(req.ResourceIDs); apierr != nil {
		return nil, apierr
	}

	now := utils.NowUTC()
	appt := &entity.Appointment{
		Ref:        uuid.NewString(),
		EmployeeID: employee.ID,
		PatientID:  req.PatientID,
		Date:       date,
		StartMin:   slot.Start,
		EndMin:     slot.End,
		Status:     entity.StatusBooked,
		Note:       req.Note,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := a.AppointmentRepo.Book(appt, req.ResourceIDs); err != nil {
		return nil, a.bookingError(err, appt)
	}
	appt.Resources = allocationsOf(appt.ID, req.ResourceIDs)
	return toAppointmentResponse(appt), nil
}

// UpdateAppointment handles both reschedules (date/time/resources) and status
// transitions. A reschedule re-runs the full availability check excluding the
// appointment itself, so moving within its own old range is allowed.
func (a *DefaultAppointmentService) UpdateAppointment(id int, req *UpdateAppointmentRequest) (*AppointmentResponse, apierror.ErrorResponse) {
	if valerr := a.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	appt, apierr := a.fetchAppointment(id)
	if apierr != nil {
		return nil, apierr
	}

	if req.Status != nil {
		if !canTransition(appt.Status, *req.Status) {
			return nil, apierror.NewValidationError("Cannot change status " + appt.Status + " to " + *req.Status)
		}
		appt.Status = *req.Status
	}
	if req.Note != nil {
		appt.Note = *req.Note
	}

	reschedule := req.Date != nil || req.StartTime != nil || req.EndTime != nil || req.ResourceIDs != nil
	if !reschedule {
		appt.UpdatedAt = utils.NowUTC()
		if err := a.AppointmentRepo.Update(appt); err != nil {
			log.Errorf("failed to update appointment %d: %v", appt.ID, err)
			return nil, apierror.InternalServerError
		}
		return toAppointmentResponse(appt), nil
	}

	if !appt.IsActive() {
		return nil, apierror.NewValidationError("Cannot reschedule a " + appt.Status + " appointment")
	}

	date := appt.Date
	startTime := schedule.FormatClock(appt.StartMin)
	endTime := schedule.FormatClock(appt.EndMin)
	if req.Date != nil {
		date = *req.Date
	}
	if req.StartTime != nil {
		startTime = *req.StartTime
	}
	if req.EndTime != nil {
		endTime = *req.EndTime
	}

	date, slot, apierr := a.parseSlot(date, startTime, endTime)
	if apierr != nil {
		return nil, apierr
	}
	if !a.isFuture(date, slot.Start) {
		return nil, apierror.AppointmentInPastError
	}

	resourceIDs := resourceIDsOf(appt.Resources)
	if req.ResourceIDs != nil {
		resourceIDs = *req.ResourceIDs
		if apierr = a.checkResources(resourceIDs); apierr != nil {
			return nil, apierr
		}
	}

	appt.Date = date
	appt.StartMin = slot.Start
	appt.EndMin = slot.End
	appt.UpdatedAt = utils.NowUTC()
	appt.Resources = nil

	if err := a.AppointmentRepo.Reschedule(appt, resourceIDs); err != nil {
		return nil, a.bookingError(err, appt)
	}
	appt.Resources = allocationsOf(appt.ID, resourceIDs)
	return toAppointmentResponse(appt), nil
}

// CancelAppointment soft-deletes the booking and hands the freed slot to the
// waitlist resolver.
func (a *DefaultAppointmentService) CancelAppointment(id int, reason string) apierror.ErrorResponse {
	appt, apierr := a.fetchAppointment(id)
	if apierr != nil {
		return apierr
	}
	return a.cancel(appt, reason)
}

// CancelAppointmentByRef is the gateway's cancellation entry point; the bot
// only knows public references. The patient guard stops one patient's chat
// session cancelling another's booking.
func (a *DefaultAppointmentService) CancelAppointmentByRef(ref string, patientID int, reason string) apierror.ErrorResponse {
	appt, err := a.AppointmentRepo.FindByRef(ref)
	if err != nil {
		log.Errorf("failed to fetch appointment by ref %s: %v", ref, err)
		return apierror.InternalServerError
	}
	if appt == nil || appt.PatientID != patientID {
		return apierror.NotFoundError
	}
	return a.cancel(appt, reason)
}

func (a *DefaultAppointmentService) cancel(appt *entity.Appointment, reason string) apierror.ErrorResponse {
	if !appt.IsActive() {
		return apierror.NotFoundError
	}

	appt.Status = entity.StatusCanceled
	appt.CancellationReason = reason
	appt.UpdatedAt = utils.NowUTC()
	if err := a.AppointmentRepo.Update(appt); err != nil {
		log.Errorf("failed to cancel appointment %d: %v", appt.ID, err)
		return apierror.InternalServerError
	}

	if a.Resolver != nil {
		a.Resolver.ResolveFreedSlot(appt.EmployeeID, appt.Date, schedule.Range{Start: appt.StartMin, End: appt.EndMin})
	}
	return nil
}

// maxSlotSearchDays bounds a slot search; every day in the range costs two
// calendar queries.
const maxSlotSearchDays = 31

// SearchSlots lists free slots for an employee across a date range, stepping
// the clinic day by the employee's booking grid.
func (a *DefaultAppointmentService) SearchSlots(employeeID int, dateFrom, dateTo string, durationMin int) (*SlotSearchResponse, apierror.ErrorResponse) {
	if durationMin <= 0 {
		return nil, apierror.NewValidationError("Duration must be a positive number of minutes")
	}

	from, err := schedule.ParseDate(dateFrom)
	if err != nil {
		return nil, apierror.NewInvalidParamTypeError("date_from", "date (YYYY-MM-DD)")
	}
	to, err := schedule.ParseDate(dateTo)
	if err != nil {
		return nil, apierror.NewInvalidParamTypeError("date_to", "date (YYYY-MM-DD)")
	}
	if to < from {
		return nil, apierror.InvalidTimeRangeError
	}
	if daysBetween(from, to) >= maxSlotSearchDays {
		return nil, apierror.NewValidationError("Date range for slot search cannot exceed 31 days")
	}

	employee, apierr := a.fetchEmployee(employeeID)
	if apierr != nil {
		return nil, apierr
	}

	step := employee.SlotStepMinutes
	if step <= 0 {
		step = a.Clinic.SlotStepMinutes
	}

	result := &SlotSearchResponse{EmployeeID: employee.ID, Slots: []*SlotResponse{}}
	for date := from; date <= to; date = nextDate(date) {
		busy, apierr := a.busyRanges(employee.ID, date)
		if apierr != nil {
			return nil, apierr
		}
		for _, slot := range schedule.FreeSlots(a.Clinic.Day, busy, step, durationMin) {
			result.Slots = append(result.Slots, &SlotResponse{
				Date:      date,
				StartTime: schedule.FormatClock(slot.Start),
				EndTime:   schedule.FormatClock(slot.End),
			})
		}
	}
	return result, nil
}

func (a *DefaultAppointmentService) busyRanges(employeeID int, date string) ([]schedule.Range, apierror.ErrorResponse) {
	appts, err := a.AppointmentRepo.FindActiveForEmployeeDate(employeeID, date)
	if err != nil {
		log.Errorf("failed to fetch appointments for employee %d on %s: %v", employeeID, date, err)
		return nil, apierror.InternalServerError
	}
	breaks, err := a.BreakRepo.FindForEmployee(employeeID, date)
	if err != nil {
		log.Errorf("failed to fetch breaks for employee %d on %s: %v", employeeID, date, err)
		return nil, apierror.InternalServerError
	}

	busy := make([]schedule.Range, 0, len(appts)+len(breaks))
	for _, appt := range appts {
		busy = append(busy, schedule.Range{Start: appt.StartMin, End: appt.EndMin})
	}
	for _, brk := range breaks {
		if brk.Occurrence().Matches(date) {
			busy = append(busy, brk.Range())
		}
	}
	return busy, nil
}

func (a *DefaultAppointmentService) parseSlot(rawDate, startTime, endTime string) (string, schedule.Range, apierror.ErrorResponse) {
	date, err := schedule.ParseDate(rawDate)
	if err != nil {
		return "", schedule.Range{}, apierror.NewInvalidParamTypeError("date", "date (YYYY-MM-DD)")
	}
	start, err := schedule.ParseClock(startTime)
	if err != nil {
		return "", schedule.Range{}, apierror.NewInvalidParamTypeError("start_time", "clock time (HH:MM)")
	}
	end, err := schedule.ParseClock(endTime)
	if err != nil {
		return "", schedule.Range{}, apierror.NewInvalidParamTypeError("end_time", "clock time (HH:MM)")
	}

	slot := schedule.Range{Start: start, End: end}
	if !slot.Valid() {
		return "", schedule.Range{}, apierror.InvalidTimeRangeError
	}
	return date, slot, nil
}

func (a *DefaultAppointmentService) isFuture(date string, startMin int) bool {
	at, err := schedule.At(date, startMin, a.Clinic.Location)
	if err != nil {
		return false
	}
	return at.After(time.Now())
}

func (a *DefaultAppointmentService) fetchAppointment(id int) (*entity.Appointment, apierror.ErrorResponse) {
	appt, err := a.AppointmentRepo.FindByID(id)
	if err != nil {
		log.Errorf("failed to fetch appointment by id %d: %v", id, err)
		return nil, apierror.InternalServerError
	}
	if appt == nil {
		return nil, apierror.NotFoundError
	}
	return appt, nil
}

func (a *DefaultAppointmentService) fetchEmployee(id int) (*entity.Employee, apierror.ErrorResponse) {
	employee, err := a.EmployeeRepo.FindByID(id)
	if err != nil {
		log.Errorf("failed to fetch employee %d: %v", id, err)
		return nil, apierror.InternalServerError
	}
	if employee == nil || !employee.IsActive {
		return nil, apierror.NotFoundError
	}
	return employee, nil
}

func (a *DefaultAppointmentService) fetchPatient(id int) (*entity.Patient, apierror.ErrorResponse) {
	patient, err := a.PatientRepo.FindByID(id)
	if err != nil {
		log.Errorf("failed to fetch patient %d: %v", id, err)
		return nil, apierror.InternalServerError
	}
	if patient == nil || !patient.IsActive {
		return nil, apierror.NotFoundError
	}
	return patient, nil
}

func (a *DefaultAppointmentService) checkResources(ids []int) apierror.ErrorResponse {
	if len(ids) == 0 {
		return nil
	}
	resources, err := a.ResourceRepo.FindByIDs(ids)
	if err != nil {
		log.Errorf("failed to fetch resources %v: %v", ids, err)
		return apierror.InternalServerError
	}
	if len(resources) != len(ids) {
		return apierror.NotFoundError
	}
	return nil
}

func (a *DefaultAppointmentService) bookingError(err error, appt *entity.Appointment) apierror.ErrorResponse {
	switch {
	case errors.Is(err, schedule.ErrInvalidRange):
		return apierror.InvalidTimeRangeError
	case errors.Is(err, schedule.ErrBreakConflict):
		return apierror.BreakConflictError
	case errors.Is(err, schedule.ErrEmployeeBusy):
		return apierror.EmployeeBusyError
	case errors.Is(err, schedule.ErrResourceBusy):
		return apierror.ResourceBusyError
	case errors.Is(err, schedule.ErrSlotTaken):
		return apierror.SlotTakenError
	}
	log.Errorf("failed to book appointment for employee %d on %s: %v", appt.EmployeeID, appt.Date, err)
	return apierror.InternalServerError
}

// canTransition encodes the appointment status lifecycle.
func canTransition(from, to string) bool {
	switch from {
	case entity.StatusBooked:
		return to == entity.StatusConfirmed || to == entity.StatusInProgress || to == entity.StatusNoShow
	case entity.StatusConfirmed:
		return to == entity.StatusInProgress || to == entity.StatusDone || to == entity.StatusNoShow
	case entity.StatusInProgress:
		return to == entity.StatusDone
	}
	return false
}

// daysBetween counts whole days from one parsed date to another.
func daysBetween(from, to string) int {
	f, err := time.Parse("2006-01-02", from)
	if err != nil {
		return 0
	}
	t, err := time.Parse("2006-01-02", to)
	if err != nil {
		return 0
	}
	return int(t.Sub(f).Hours() / 24)
}

func nextDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, 1).Format("2006-01-02")
}

func resourceIDsOf(allocs []entity.AppointmentResource) []int {
	ids := make([]int, len(allocs))
	for i, alloc := range allocs {
		ids[i] = alloc.ResourceID
	}
	return ids
}

func allocationsOf(appointmentID int, resourceIDs []int) []entity.AppointmentResource {
	allocs := make([]entity.AppointmentResource, len(resourceIDs))
	for i, id := range resourceIDs {
		allocs[i] = entity.AppointmentResource{AppointmentID: appointmentID, ResourceID: id}
	}
	return allocs
}

func toAppointmentResponse(appt *entity.Appointment) *AppointmentResponse {
	return &AppointmentResponse{
		ID:          appt.ID,
		Ref:         appt.Ref,
		EmployeeID:  appt.EmployeeID,
		PatientID:   appt.PatientID,
		Date:        appt.Date,
		StartTime:   schedule.FormatClock(appt.StartMin),
		EndTime:     schedule.FormatClock(appt.EndMin),
		Status:      appt.Status,
		Note:        appt.Note,
		ResourceIDs: resourceIDsOf(appt.Resources),
		CreatedAt:   utils.FormatEpoch(appt.CreatedAt),
		UpdatedAt:   utils.FormatEpoch(appt.UpdatedAt),
	}
}
