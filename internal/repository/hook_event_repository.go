package repository

import (
	"time"

	"github.com/refergate/refergate/internal/models"
	"gorm.io/gorm"
)

// HookEventRepository 钩子事件发件箱数据访问接口
type HookEventRepository interface {
	WithTx(tx *gorm.DB) HookEventRepository

	Create(event *models.HookEvent) error
	ListPending(limit int) ([]models.HookEvent, error)
	MarkDispatched(id uint, at time.Time) error
	IncrementAttempts(id uint) error
}

// GormHookEventRepository GORM 钩子事件仓储
type GormHookEventRepository struct {
	db *gorm.DB
}

// NewHookEventRepository 创建钩子事件仓储
func NewHookEventRepository(db *gorm.DB) *GormHookEventRepository {
	return &GormHookEventRepository{db: db}
}

// WithTx 绑定事务
func (r *GormHookEventRepository) WithTx(tx *gorm.DB) HookEventRepository {
	if tx == nil {
		return r
	}
	return &GormHookEventRepository{db: tx}
}

// Create 写入钩子事件（与业务变更同事务调用）
func (r *GormHookEventRepository) Create(event *models.HookEvent) error {
	if event == nil {
		return nil
	}
	return r.db.Create(event).Error
}

// ListPending 查询待派发钩子事件
func (r *GormHookEventRepository) ListPending(limit int) ([]models.HookEvent, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	var rows []models.HookEvent
	err := r.db.Where("dispatched = ?", false).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkDispatched 标记钩子事件已派发
func (r *GormHookEventRepository) MarkDispatched(id uint, at time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.HookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"dispatched":    true,
			"dispatched_at": at,
			"updated_at":    at,
		}).Error
}

// IncrementAttempts 记录一次派发尝试
func (r *GormHookEventRepository) IncrementAttempts(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.HookEvent{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + ?", 1)).Error
}
