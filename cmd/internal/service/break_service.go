package service

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"

	"medsched/cmd/internal/domain/entity"
	"medsched/cmd/internal/domain/schedule"
	"medsched/cmd/internal/utils"
	"medsched/cmd/internal/utils/apierror"
)

// BreakRequest creates a break. A nil date makes the break recurring: it
// applies on every date.
type BreakRequest struct {
	EmployeeID int     `json:"employee_id" validate:"required"`
	BreakType  string  `json:"break_type" validate:"required,oneof=lunch break meeting other"`
	Date       *string `json:"date" validate:"omitempty,dateonly"`
	StartTime  string  `json:"start_time" validate:"required,clocktime"`
	EndTime    string  `json:"end_time" validate:"required,clocktime"`
	Note       string  `json:"note" validate:"max=500"`
}

type BreakResponse struct {
	ID         int     `json:"id"`
	EmployeeID int     `json:"employee_id"`
	BreakType  string  `json:"break_type"`
	Recurring  bool    `json:"recurring"`
	Date       *string `json:"date,omitempty"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	Note       string  `json:"note,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

type DefaultBreakService struct {
	BreakRepo    BreakRepository
	EmployeeRepo EmployeeRepository
	Validate     *validator.Validate
}

func NewBreakService(breakRepo BreakRepository, employeeRepo EmployeeRepository, validate *validator.Validate) *DefaultBreakService {
	return &DefaultBreakService{BreakRepo: breakRepo, EmployeeRepo: employeeRepo, Validate: validate}
}

// GetBreaks lists an employee's breaks; with a date only breaks applying on
// that date are returned.
func (b *DefaultBreakService) GetBreaks(employeeID int, date string) ([]*BreakResponse, apierror.ErrorResponse) {
	if date != "" {
		normalized, err := schedule.ParseDate(date)
		if err != nil {
			return nil, apierror.NewInvalidParamTypeError("date", "date (YYYY-MM-DD)")
		}
		date = normalized
	}

	breaks, err := b.BreakRepo.FindForEmployee(employeeID, date)
	if err != nil {
		log.Errorf("failed to list breaks for employee %d: %v", employeeID, err)
		return nil, apierror.InternalServerError
	}

	response := make([]*BreakResponse, len(breaks))
	for i, brk := range breaks {
		response[i] = toBreakResponse(brk)
	}
	return response, nil
}

func (b *DefaultBreakService) CreateBreak(req *BreakRequest) (*BreakResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := b.Validate.Struct(req); valerr != nil {
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
	if !window.Valid() {
		return nil, apierror.InvalidTimeRangeError
	}

	var date *string
	if req.Date != nil {
		normalized, err := schedule.ParseDate(*req.Date)
		if err != nil {
			return nil, apierror.NewInvalidParamTypeError("date", "date (YYYY-MM-DD)")
		}
		date = &normalized
	}

	employee, err := b.EmployeeRepo.FindByID(req.EmployeeID)
	if err != nil {
		log.Errorf("failed to fetch employee %d: %v", req.EmployeeID, err)
		return nil, apierror.InternalServerError
	}
	if employee == nil || !employee.IsActive {
		return nil, apierror.NotFoundError
	}

	// A recurring break overlaps anything in its time window; a dated break
	// only collides with breaks applying on its date.
	overlapDate := ""
	if date != nil {
		overlapDate = *date
	}
	existing, err := b.BreakRepo.FindOverlapping(req.EmployeeID, overlapDate, start, end)
	if err != nil {
		log.Errorf("failed to check break overlap for employee %d: %v", req.EmployeeID, err)
		return nil, apierror.InternalServerError
	}
	for _, other := range existing {
		if date == nil || other.Occurrence().Matches(*date) {
			return nil, apierror.NewValidationError("Employee already has an overlapping break")
		}
	}

	now := utils.NowUTC()
	brk := &entity.Break{
		EmployeeID: req.EmployeeID,
		BreakType:  req.BreakType,
		Date:       date,
		StartMin:   start,
		EndMin:     end,
		Note:       req.Note,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := b.BreakRepo.Save(brk); err != nil {
		log.Errorf("failed to save break for employee %d: %v", req.EmployeeID, err)
		return nil, apierror.InternalServerError
	}
	return toBreakResponse(brk), nil
}

func (b *DefaultBreakService) DeleteBreak(id int) apierror.ErrorResponse {
	brk, err := b.BreakRepo.FindByID(id)
	if err != nil {
		log.Errorf("failed to fetch break %d: %v", id, err)
		return apierror.InternalServerError
	}
	if brk == nil {
		return apierror.NotFoundError
	}

	if err := b.BreakRepo.Delete(brk); err != nil {
		log.Errorf("failed to delete break %d: %v", id, err)
		return apierror.InternalServerError
	}
	return nil
}

func toBreakResponse(brk *entity.Break) *BreakResponse {
	occ := brk.Occurrence()
	return &BreakResponse{
		ID:         brk.ID,
		EmployeeID: brk.EmployeeID,
		BreakType:  brk.BreakType,
		Recurring:  occ.IsRecurring(),
		Date:       brk.Date,
		StartTime:  schedule.FormatClock(brk.StartMin),
		EndTime:    schedule.FormatClock(brk.EndMin),
		Note:       brk.Note,
		CreatedAt:  utils.FormatEpoch(brk.CreatedAt),
	}
}
