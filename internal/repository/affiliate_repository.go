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

// AffiliateRepository 推广人数据访问接口
type AffiliateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateRepository

	Create(affiliate *models.Affiliate) error
	Update(affiliate *models.Affiliate) error
	GetByID(id uint) (*models.Affiliate, error)
	GetByIDForUpdate(id uint) (*models.Affiliate, error)
	GetByUserID(userID string) (*models.Affiliate, error)
	GetByCode(code string) (*models.Affiliate, error)
	UpdateStatus(id uint, status string, updatedAt time.Time) error
	List(filter AffiliateListFilter) ([]models.Affiliate, uint, error)
	ListWithDueCommissions(now time.Time) ([]uint, error)

	IncrementStats(id uint, column string, delta int64) error
	ApplyStatsDelta(id uint, deltas map[string]int64) error
}

// GormAffiliateRepository GORM 推广人仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广人仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAffiliateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建推广人
func (r *GormAffiliateRepository) Create(affiliate *models.Affiliate) error {
	return r.db.Create(affiliate).Error
}

// Update 更新推广人
func (r *GormAffiliateRepository) Update(affiliate *models.Affiliate) error {
	if affiliate == nil || affiliate.ID == 0 {
		return nil
	}
	return r.db.Save(affiliate).Error
}

// GetByID 按ID获取推广人
func (r *GormAffiliateRepository) GetByID(id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Preload("Campaign").First(&affiliate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByIDForUpdate 按ID获取推广人并加行锁
func (r *GormAffiliateRepository) GetByIDForUpdate(id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&affiliate, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByUserID 按外部用户ID获取推广人
func (r *GormAffiliateRepository) GetByUserID(userID string) (*models.Affiliate, error) {
	normalized := strings.TrimSpace(userID)
	if normalized == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Preload("Campaign").Where("user_id = ?", normalized).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByCode 按推荐码获取推广人
func (r *GormAffiliateRepository) GetByCode(code string) (*models.Affiliate, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Preload("Campaign").Where("code = ?", normalized).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// UpdateStatus 更新推广人状态
func (r *GormAffiliateRepository) UpdateStatus(id uint, status string, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     strings.TrimSpace(status),
			"updated_at": updatedAt,
		}).Error
}

// List 查询推广人列表（游标分页）
func (r *GormAffiliateRepository) List(filter AffiliateListFilter) ([]models.Affiliate, uint, error) {
	query := r.db.Model(&models.Affiliate{}).Preload("Campaign")
	if filter.CampaignID != 0 {
		query = query.Where("campaign_id = ?", filter.CampaignID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		op := likeOperatorByDialect(dbDialectName(r.db))
		query = query.Where(
			"(code "+op+" ? OR user_id "+op+" ? OR payout_email "+op+" ?)",
			like, like, like,
		)
	}

	var rows []models.Affiliate
	if err := applyCursor(query, filter.Cursor, filter.Limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	cursor := nextCursor(rows, filter.Limit, func(a models.Affiliate) uint { return a.ID })
	return rows, cursor, nil
}

// ListWithDueCommissions 查询存在到期可结算佣金的推广人ID
func (r *GormAffiliateRepository) ListWithDueCommissions(now time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Commission{}).
		Distinct("affiliate_id").
		Where("status = ? AND due_at <= ? AND payout_id IS NULL", constants.CommissionStatusApproved, now).
		Pluck("affiliate_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// IncrementStats 单列增量更新统计
func (r *GormAffiliateRepository) IncrementStats(id uint, column string, delta int64) error {
	if id == 0 || delta == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

// ApplyStatsDelta 多列增量更新统计，负向结果截断为 0
func (r *GormAffiliateRepository) ApplyStatsDelta(id uint, deltas map[string]int64) error {
	if id == 0 || len(deltas) == 0 {
		return nil
	}
	updates := make(map[string]interface{}, len(deltas))
	for column, delta := range deltas {
		if delta == 0 {
			continue
		}
		if delta > 0 {
			updates[column] = gorm.Expr(column+" + ?", delta)
			continue
		}
		// 负向增量截断，保证统计列永不为负
		updates[column] = gorm.Expr(clampedAddExpr(r.db, column), delta)
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).Where("id = ?", id).UpdateColumns(updates).Error
}
