package service

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"

	"medsched/cmd/internal/domain/entity"
	"medsched/cmd/internal/utils"
	"medsched/cmd/internal/utils/apierror"
)

type PatientWriteRepository interface {
	FindByID(id int) (*entity.Patient, error)
	Save(patient *entity.Patient) error
}

type SubscriptionRepository interface {
	FindForPatient(patientID int) ([]*entity.PushSubscription, error)
	Upsert(sub *entity.PushSubscription) error
	DeleteByEndpoint(endpoint string) error
}

type EmployeeResponse struct {
	ID              int    `json:"id"`
	FullName        string `json:"full_name"`
	Role            string `json:"role"`
	CalendarColor   string `json:"calendar_color,omitempty"`
	SlotStepMinutes int    `json:"slot_step_minutes"`
	IsActive        bool   `json:"is_active"`
}

type PatientRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=160"`
	Phone    string `json:"phone" validate:"max=32"`
}

type PatientResponse struct {
	ID        int    `json:"id"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at"`
}

// SubscriptionRequest mirrors the browser PushSubscription JSON.
type SubscriptionRequest struct {
	PatientID int    `json:"patient_id" validate:"required"`
	Endpoint  string `json:"endpoint" validate:"required,max=512,url"`
	P256DH    string `json:"p256dh" validate:"required"`
	Auth      string `json:"auth" validate:"required"`
}

type DefaultDirectoryService struct {
	EmployeeRepo     EmployeeRepository
	PatientRepo      PatientWriteRepository
	SubscriptionRepo SubscriptionRepository
	Validate         *validator.Validate
}

func NewDirectoryService(employeeRepo EmployeeRepository, patientRepo PatientWriteRepository, subscriptionRepo SubscriptionRepository, validate *validator.Validate) *DefaultDirectoryService {
	return &DefaultDirectoryService{
		EmployeeRepo:     employeeRepo,
		PatientRepo:      patientRepo,
		SubscriptionRepo: subscriptionRepo,
		Validate:         validate,
	}
}

func (d *DefaultDirectoryService) GetEmployees(activeOnly bool) ([]*EmployeeResponse, apierror.ErrorResponse) {
	employees, err := d.EmployeeRepo.FindAll(activeOnly)
	if err != nil {
		log.Errorf("failed to fetch employees: %v", err)
		return nil, apierror.InternalServerError
	}

	response := make([]*EmployeeResponse, len(employees))
	for i, emp := range employees {
		response[i] = &EmployeeResponse{
			ID:              emp.ID,
			FullName:        emp.FullName,
			Role:            emp.Role,
			CalendarColor:   emp.CalendarColor,
			SlotStepMinutes: emp.SlotStepMinutes,
			IsActive:        emp.IsActive,
		}
	}
	return response, nil
}

func (d *DefaultDirectoryService) GetPatient(id int) (*PatientResponse, apierror.ErrorResponse) {
	patient, err := d.PatientRepo.FindByID(id)
	if err != nil {
		log.Errorf("failed to fetch patient %d: %v", id, err)
		return nil, apierror.InternalServerError
	}
	if patient == nil {
		return nil, apierror.NotFoundError
	}
	return toPatientResponse(patient), nil
}

func (d *DefaultDirectoryService) CreatePatient(req *PatientRequest) (*PatientResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := d.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	now := utils.NowUTC()
	patient := &entity.Patient{
		FullName:  req.FullName,
		Phone:     req.Phone,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.PatientRepo.Save(patient); err != nil {
		log.Errorf("failed to create patient: %v", err)
		return nil, apierror.InternalServerError
	}
	return toPatientResponse(patient), nil
}

// Subscribe registers a patient's web-push endpoint, refreshing the keys when
// the browser re-subscribes with the same endpoint.
func (d *DefaultDirectoryService) Subscribe(req *SubscriptionRequest) apierror.ErrorResponse {
	if valerr := d.Validate.Struct(req); valerr != nil {
		return apierror.FromValidationError(valerr)
	}

	patient, err := d.PatientRepo.FindByID(req.PatientID)
	if err != nil {
		log.Errorf("failed to fetch patient %d: %v", req.PatientID, err)
		return apierror.InternalServerError
	}
	if patient == nil || !patient.IsActive {
		return apierror.NotFoundError
	}

	sub := &entity.PushSubscription{
		Endpoint:  req.Endpoint,
		PatientID: req.PatientID,
		P256DH:    req.P256DH,
		Auth:      req.Auth,
		CreatedAt: utils.NowUTC(),
	}
	if err := d.SubscriptionRepo.Upsert(sub); err != nil {
		log.Errorf("failed to save push subscription for patient %d: %v", req.PatientID, err)
		return apierror.InternalServerError
	}
	return nil
}

func (d *DefaultDirectoryService) Unsubscribe(endpoint string) apierror.ErrorResponse {
	if endpoint == "" {
		return apierror.NewMissingParamError("endpoint")
	}
	if err := d.SubscriptionRepo.DeleteByEndpoint(endpoint); err != nil {
		log.Errorf("failed to delete push subscription: %v", err)
		return apierror.InternalServerError
	}
	return nil
}

func toPatientResponse(patient *entity.Patient) *PatientResponse {
	return &PatientResponse{
		ID:        patient.ID,
		FullName:  patient.FullName,
		Phone:     patient.Phone,
		CreatedAt: utils.FormatEpoch(patient.CreatedAt),
	}
}
