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

// ReferralRepository 推荐记录数据访问接口
type ReferralRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ReferralRepository

	Create(referral *models.Referral) error
	Update(referral *models.Referral) error
	GetByReferralID(referralID string) (*models.Referral, error)
	GetByReferralIDForUpdate(referralID string) (*models.Referral, error)
	GetByCustomerID(customerID string) (*models.Referral, error)
	GetByUserID(userID string) (*models.Referral, error)
	GetByUserIDForUpdate(userID string) (*models.Referral, error)
	List(filter ReferralListFilter) ([]models.Referral, uint, error)
	ExpireClicked(now time.Time) (int64, error)
	CountRecentClicksByIP(clientIP string, since time.Time) (int64, error)
}

// GormReferralRepository GORM 推荐记录仓储
type GormReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository 创建推荐记录仓储
func NewReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReferralRepository) WithTx(tx *gorm.DB) ReferralRepository {
	if tx == nil {
		return r
	}
	return &GormReferralRepository{db: tx}
}

// Transaction 执行事务
func (r *GormReferralRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建推荐记录
func (r *GormReferralRepository) Create(referral *models.Referral) error {
	return r.db.Create(referral).Error
}

// Update 更新推荐记录
func (r *GormReferralRepository) Update(referral *models.Referral) error {
	if referral == nil || referral.ID == 0 {
		return nil
	}
	return r.db.Save(referral).Error
}

// GetByReferralID 按对外推荐标识获取推荐记录
func (r *GormReferralRepository) GetByReferralID(referralID string) (*models.Referral, error) {
	normalized := strings.TrimSpace(referralID)
	if normalized == "" {
		return nil, nil
	}
	var referral models.Referral
	if err := r.db.Where("referral_id = ?", normalized).First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// GetByReferralIDForUpdate 按对外推荐标识获取推荐记录并加行锁
func (r *GormReferralRepository) GetByReferralIDForUpdate(referralID string) (*models.Referral, error) {
	normalized := strings.TrimSpace(referralID)
	if normalized == "" {
		return nil, nil
	}
	var referral models.Referral
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("referral_id = ?", normalized).
		First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// GetByCustomerID 按支付侧客户ID获取推荐记录
func (r *GormReferralRepository) GetByCustomerID(customerID string) (*models.Referral, error) {
	normalized := strings.TrimSpace(customerID)
	if normalized == "" {
		return nil, nil
	}
	var referral models.Referral
	if err := r.db.Where("customer_id = ?", normalized).First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// GetByUserID 按绑定用户ID获取推荐记录
func (r *GormReferralRepository) GetByUserID(userID string) (*models.Referral, error) {
	normalized := strings.TrimSpace(userID)
	if normalized == "" {
		return nil, nil
	}
	var referral models.Referral
	if err := r.db.Where("user_id = ?", normalized).First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// GetByUserIDForUpdate 按绑定用户ID获取推荐记录并加行锁
func (r *GormReferralRepository) GetByUserIDForUpdate(userID string) (*models.Referral, error) {
	normalized := strings.TrimSpace(userID)
	if normalized == "" {
		return nil, nil
	}
	var referral models.Referral
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", normalized).
		First(&referral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// List 查询推荐记录列表（游标分页）
func (r *GormReferralRepository) List(filter ReferralListFilter) ([]models.Referral, uint, error) {
	query := r.db.Model(&models.Referral{})
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var rows []models.Referral
	if err := applyCursor(query, filter.Cursor, filter.Limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	cursor := nextCursor(rows, filter.Limit, func(x models.Referral) uint { return x.ID })
	return rows, cursor, nil
}

// ExpireClicked 把超过归因窗口的 clicked 推荐批量置为 expired
// 状态谓词写进 UPDATE 本身，刚完成注册的记录不会被误过期
func (r *GormReferralRepository) ExpireClicked(now time.Time) (int64, error) {
	result := r.db.Model(&models.Referral{}).
		Where("status = ? AND expires_at <= ?", constants.ReferralStatusClicked, now).
		Updates(map[string]interface{}{
			"status":     constants.ReferralStatusExpired,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CountRecentClicksByIP 统计某 IP 近期点击数（Redis 不可用时的限流兜底）
func (r *GormReferralRepository) CountRecentClicksByIP(clientIP string, since time.Time) (int64, error) {
	ip := strings.TrimSpace(clientIP)
	if ip == "" {
		return 0, nil
	}
	var total int64
	err := r.db.Model(&models.Referral{}).
		Where("client_ip = ? AND clicked_at >= ?", ip, since).
		Count(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
