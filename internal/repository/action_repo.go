package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActionRepository is the append-only ledger of request state changes. There
// is deliberately no update or delete method.
type ActionRepository interface {
	Append(ctx context.Context, action *model.ApprovalAction) error
	HistoryByRequest(ctx context.Context, requestID uuid.UUID) ([]model.ApprovalAction, error)
	CountByRequest(ctx context.Context, requestID uuid.UUID) (int64, error)
}

type actionRepository struct {
	db *gorm.DB
}

func NewActionRepository(db *gorm.DB) ActionRepository {
	return &actionRepository{db: db}
}

func (r *actionRepository) Append(ctx context.Context, action *model.ApprovalAction) error {
	return GetDB(ctx, r.db).Create(action).Error
}

func (r *actionRepository) HistoryByRequest(ctx context.Context, requestID uuid.UUID) ([]model.ApprovalAction, error) {
	var actions []model.ApprovalAction
	if err := GetDB(ctx, r.db).
		Preload("Actor").
		Where("request_id = ?", requestID).
		Order("seq ASC").
		Find(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}

func (r *actionRepository) CountByRequest(ctx context.Context, requestID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ApprovalAction{}).
		Where("request_id = ?", requestID).
		Count(&count).Error
	return count, err
}
