package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionRepository 佣金数据访问接口
type CommissionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommissionRepository

	Create(commission *models.Commission) error
	Update(commission *models.Commission) error
	GetByID(id uint) (*models.Commission, error)
	GetByIDForUpdate(id uint) (*models.Commission, error)
	GetByEventID(eventID string) (*models.Commission, error)
	GetByChargeID(chargeID string) (*models.Commission, error)
	List(filter CommissionListFilter) ([]models.Commission, uint, error)
	ListDue(affiliateID uint, now time.Time) ([]models.Commission, error)
	ListByIDsForUpdate(ids []uint) ([]models.Commission, error)
	ListByPayoutIDForUpdate(payoutID uint) ([]models.Commission, error)
	CountBySubscription(subscriptionID string) (int64, error)
	FirstBySubscription(subscriptionID string) (*models.Commission, error)
	BatchUpdate(ids []uint, updates map[string]interface{}) error
}

// GormCommissionRepository GORM 佣金仓储
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建佣金
func (r *GormCommissionRepository) Create(commission *models.Commission) error {
	return r.db.Create(commission).Error
}

// Update 更新佣金
func (r *GormCommissionRepository) Update(commission *models.Commission) error {
	if commission == nil || commission.ID == 0 {
		return nil
	}
	return r.db.Save(commission).Error
}

// GetByID 按ID获取佣金
func (r *GormCommissionRepository) GetByID(id uint) (*models.Commission, error) {
	if id == 0 {
		return nil, nil
	}
	var commission models.Commission
	if err := r.db.First(&commission, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// GetByIDForUpdate 按ID获取佣金并加行锁
func (r *GormCommissionRepository) GetByIDForUpdate(id uint) (*models.Commission, error) {
	if id == 0 {
		return nil, nil
	}
	var commission models.Commission
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&commission, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// GetByEventID 按支付事件ID获取佣金（webhook 幂等回查）
func (r *GormCommissionRepository) GetByEventID(eventID string) (*models.Commission, error) {
	normalized := strings.TrimSpace(eventID)
	if normalized == "" {
		return nil, nil
	}
	var commission models.Commission
	if err := r.db.Where("event_id = ?", normalized).First(&commission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// GetByChargeID 按交易ID获取佣金（退款回查）
func (r *GormCommissionRepository) GetByChargeID(chargeID string) (*models.Commission, error) {
	normalized := strings.TrimSpace(chargeID)
	if normalized == "" {
		return nil, nil
	}
	var commission models.Commission
	if err := r.db.Where("charge_id = ?", normalized).First(&commission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// List 查询佣金列表（游标分页）
func (r *GormCommissionRepository) List(filter CommissionListFilter) ([]models.Commission, uint, error) {
	query := r.db.Model(&models.Commission{})
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if productID := strings.TrimSpace(filter.ProductID); productID != "" {
		query = query.Where("product_id = ?", productID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var rows []models.Commission
	if err := applyCursor(query, filter.Cursor, filter.Limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	cursor := nextCursor(rows, filter.Limit, func(c models.Commission) uint { return c.ID })
	return rows, cursor, nil
}

// ListDue 查询某推广人已到期、已审核且未入结算单的佣金
func (r *GormCommissionRepository) ListDue(affiliateID uint, now time.Time) ([]models.Commission, error) {
	if affiliateID == 0 {
		return nil, nil
	}
	var rows []models.Commission
	err := r.db.Where("affiliate_id = ? AND status = ? AND due_at <= ? AND payout_id IS NULL",
		affiliateID, constants.CommissionStatusApproved, now).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByIDsForUpdate 按ID集合获取佣金并加行锁
func (r *GormCommissionRepository) ListByIDsForUpdate(ids []uint) ([]models.Commission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Commission
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByPayoutIDForUpdate 按结算单获取佣金并加行锁
func (r *GormCommissionRepository) ListByPayoutIDForUpdate(payoutID uint) ([]models.Commission, error) {
	if payoutID == 0 {
		return nil, nil
	}
	var rows []models.Commission
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payout_id = ?", payoutID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountBySubscription 统计某订阅已计佣次数（不含已冲销）
func (r *GormCommissionRepository) CountBySubscription(subscriptionID string) (int64, error) {
	normalized := strings.TrimSpace(subscriptionID)
	if normalized == "" {
		return 0, nil
	}
	var total int64
	err := r.db.Model(&models.Commission{}).
		Where("subscription_id = ? AND status <> ?", normalized, constants.CommissionStatusReversed).
		Count(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// FirstBySubscription 获取某订阅最早一条佣金
func (r *GormCommissionRepository) FirstBySubscription(subscriptionID string) (*models.Commission, error) {
	normalized := strings.TrimSpace(subscriptionID)
	if normalized == "" {
		return nil, nil
	}
	var commission models.Commission
	err := r.db.Where("subscription_id = ?", normalized).
		Order("created_at ASC, id ASC").
		First(&commission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// BatchUpdate 批量更新佣金字段
func (r *GormCommissionRepository) BatchUpdate(ids []uint, updates map[string]interface{}) error {
	if len(ids) == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Commission{}).Where("id IN ?", ids).Updates(updates).Error
}
