package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Reason codes consumed by the web client and the bot gateway.
const (
	ReasonValidation    = "VALIDATION"
	ReasonNotFound      = "NOT_FOUND"
	ReasonBreakConflict = "BREAK_CONFLICT"
	ReasonEmployeeBusy  = "EMPLOYEE_BUSY"
	ReasonResourceBusy  = "RESOURCE_BUSY"
	ReasonSlotTaken     = "SLOT_TAKEN"
)

// ErrorResponse is what services return instead of raw errors; routes
// serialize it as the response body with its status code.
type ErrorResponse interface {
	error
	Code() int
}

type response struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func (r *response) Error() string { return r.Message }

func (r *response) Code() int { return r.Status }

func NewSimple(code int, message string) ErrorResponse {
	return &response{Status: code, Message: message}
}

func newConflict(reason, message string) ErrorResponse {
	return &response{Status: http.StatusConflict, Message: message, Reason: reason}
}

var (
	InternalServerError = NewSimple(http.StatusInternalServerError, "Something went wrong, please try again later")
	MalformedBodyError  = NewSimple(http.StatusBadRequest, "Could not understand request body")
	NotFoundError       = &response{Status: http.StatusNotFound, Message: "Resource not found", Reason: ReasonNotFound}
	InvalidAuthTokenError = NewSimple(http.StatusUnauthorized, "Missing or invalid credentials")
	ForbiddenError        = NewSimple(http.StatusForbidden, "You are not allowed to perform this action")

	InvalidTimeRangeError  = &response{Status: http.StatusBadRequest, Message: "Start time must be before end time", Reason: ReasonValidation}
	AppointmentInPastError = &response{Status: http.StatusBadRequest, Message: "Appointment must be in the future", Reason: ReasonValidation}

	BreakConflictError = newConflict(ReasonBreakConflict, "Requested time overlaps an employee break")
	EmployeeBusyError  = newConflict(ReasonEmployeeBusy, "Employee already has an appointment in this time")
	ResourceBusyError  = newConflict(ReasonResourceBusy, "A requested resource is already booked in this time")
	SlotTakenError     = newConflict(ReasonSlotTaken, "Slot is no longer available")

	WaitlistResolvedError = newConflict(ReasonValidation, "Waitlist entry is already resolved")
	OfferNotActiveError   = newConflict(ReasonValidation, "No active offer to confirm")
)

func NewMissingParamError(name string) ErrorResponse {
	return &response{
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Missing required parameter %q", name),
		Reason:  ReasonValidation,
	}
}

func NewInvalidParamTypeError(name, expected string) ErrorResponse {
	return &response{
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Parameter %q must be a valid %s", name, expected),
		Reason:  ReasonValidation,
	}
}

func NewValidationError(message string) ErrorResponse {
	return &response{Status: http.StatusBadRequest, Message: message, Reason: ReasonValidation}
}

// FromValidationError turns validator errors into a 400 naming the first
// violated constraint.
func FromValidationError(err error) ErrorResponse {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return MalformedBodyError
	}

	fe := verrs[0]
	msg := fmt.Sprintf("Field %q failed validation: %s", fe.Field(), fe.Tag())
	if fe.Param() != "" {
		msg = fmt.Sprintf("%s=%s", msg, fe.Param())
	}
	return &response{Status: http.StatusBadRequest, Message: msg, Reason: ReasonValidation}
}
