package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medsched/cmd/internal/domain/entity"
)

type DefaultSubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *DefaultSubscriptionRepository {
	return &DefaultSubscriptionRepository{db: db}
}

func (s *DefaultSubscriptionRepository) FindForPatient(patientID int) ([]*entity.PushSubscription, error) {
	var subs []*entity.PushSubscription
	err := s.db.Where("patient_id = ?", patientID).Find(&subs).Error
	return subs, err
}

// Upsert registers or refreshes a subscription keyed by endpoint.
func (s *DefaultSubscriptionRepository) Upsert(sub *entity.PushSubscription) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"patient_id", "p256dh", "auth"}),
	}).Create(sub).Error
}

func (s *DefaultSubscriptionRepository) DeleteByEndpoint(endpoint string) error {
	return s.db.Where("endpoint = ?", endpoint).Delete(&entity.PushSubscription{}).Error
}
