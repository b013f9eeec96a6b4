package rpprofile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alertx/internal/app/domains/entity/etprofile"
	"alertx/internal/app/pkg/errorx"
	"alertx/internal/common/entity"
)

// ProfileRepositoryImpl 档案仓储实现（GORM）
type ProfileRepositoryImpl struct {
	db *gorm.DB
}

// NewProfileRepository 创建档案仓储实例
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &ProfileRepositoryImpl{db: db}
}

// Save 按 requester_id upsert
func (r *ProfileRepositoryImpl) Save(ctx context.Context, profile *etprofile.Profile) error {
	conditions, err := json.Marshal(profile.KnownConditions)
	if err != nil {
		return err
	}
	contacts, err := json.Marshal(profile.Contacts)
	if err != nil {
		return err
	}

	now := time.Now()
	po := &entity.Profile{
		RequesterID:     profile.RequesterID,
		Name:            profile.Name,
		Age:             profile.Age,
		KnownConditions: conditions,
		Contacts:        contacts,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "requester_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "age", "known_conditions", "contacts", "updated_at"}),
	}).Create(po).Error
}

// GetByRequester 查询档案
func (r *ProfileRepositoryImpl) GetByRequester(ctx context.Context, requesterID string) (*etprofile.Profile, error) {
	var po entity.Profile
	err := r.db.WithContext(ctx).Where("requester_id = ?", requesterID).First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.ErrProfileNotFound
		}
		return nil, err
	}

	var conditions []string
	if len(po.KnownConditions) > 0 {
		if err := json.Unmarshal(po.KnownConditions, &conditions); err != nil {
			return nil, err
		}
	}
	var contacts []etprofile.Contact
	if len(po.Contacts) > 0 {
		if err := json.Unmarshal(po.Contacts, &contacts); err != nil {
			return nil, err
		}
	}
	return etprofile.NewProfile(po.RequesterID, po.Name, po.Age, conditions, contacts)
}
