package repository

import (
	"context"
	"fmt"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestFilter narrows List results. Zero values mean "no filter".
type RequestFilter struct {
	State      string
	Department string
	Priority   string
	Search     string // matches request_number or item_name
	Page       int
	Limit      int
}

type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	FindByIDWithInitiator(ctx context.Context, id uuid.UUID) (*model.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]model.Request, int64, error)
	// UpdateStateCAS moves the request to newState only if the stored version
	// still equals fromVersion, bumping the version and stamping
	// state_entered_at. Returns the number of rows changed: zero means the
	// caller lost a write race and must re-read.
	UpdateStateCAS(ctx context.Context, id uuid.UUID, fromVersion int64, newState string, enteredAt time.Time) (int64, error)
	NextRequestNumber(ctx context.Context) (string, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByIDWithInitiator(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).Preload("Initiator").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]model.Request, int64, error) {
	db := GetDB(ctx, r.db)

	applyFilter := func(q *gorm.DB) *gorm.DB {
		if filter.State != "" {
			q = q.Where("state = ?", filter.State)
		}
		if filter.Department != "" {
			q = q.Where("department = ?", filter.Department)
		}
		if filter.Priority != "" {
			q = q.Where("priority = ?", filter.Priority)
		}
		if filter.Search != "" {
			like := "%" + filter.Search + "%"
			q = q.Where("request_number ILIKE ? OR item_name ILIKE ?", like, like)
		}
		return q
	}

	var total int64
	if err := applyFilter(db.Model(&model.Request{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	var requests []model.Request
	if err := applyFilter(db.Preload("Initiator")).
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *requestRepository) UpdateStateCAS(ctx context.Context, id uuid.UUID, fromVersion int64, newState string, enteredAt time.Time) (int64, error) {
	result := GetDB(ctx, r.db).Model(&model.Request{}).
		Where("id = ? AND version = ?", id, fromVersion).
		Updates(map[string]interface{}{
			"state":            newState,
			"state_entered_at": enteredAt,
			"version":          fromVersion + 1,
		})
	return result.RowsAffected, result.Error
}

// NextRequestNumber issues the next REQ-YYYYMMDD-NNNNN number. The advisory
// lock serializes concurrent callers within the same day prefix.
func (r *requestRepository) NextRequestNumber(ctx context.Context) (string, error) {
	db := GetDB(ctx, r.db)
	prefix := "REQ-" + time.Now().Format("20060102") + "-"

	db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix)

	var count int64
	if err := db.Model(&model.Request{}).
		Where("request_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}
