package repository

import (
	"errors"
	"strings"

	"github.com/refergate/refergate/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CampaignRepository 推广活动数据访问接口
type CampaignRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CampaignRepository

	Create(campaign *models.Campaign) error
	Update(campaign *models.Campaign) error
	GetByID(id uint) (*models.Campaign, error)
	GetBySlug(slug string) (*models.Campaign, error)
	GetDefault() (*models.Campaign, error)
	SetDefault(id uint) error
	List(filter CampaignListFilter) ([]models.Campaign, uint, error)

	CreateProductRate(rate *models.CampaignProductRate) error
	GetProductRate(campaignID uint, productID string) (*models.CampaignProductRate, error)
	ListProductRates(campaignID uint) ([]models.CampaignProductRate, error)
	DeleteProductRate(id uint) error

	CreateTier(tier *models.CampaignTier) error
	ListTiers(campaignID uint) ([]models.CampaignTier, error)
	DeleteTier(id uint) error
}

// GormCampaignRepository GORM 推广活动仓储
type GormCampaignRepository struct {
	db *gorm.DB
}

// NewCampaignRepository 创建推广活动仓储
func NewCampaignRepository(db *gorm.DB) *GormCampaignRepository {
	return &GormCampaignRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCampaignRepository) WithTx(tx *gorm.DB) CampaignRepository {
	if tx == nil {
		return r
	}
	return &GormCampaignRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCampaignRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建推广活动
func (r *GormCampaignRepository) Create(campaign *models.Campaign) error {
	if campaign == nil {
		return nil
	}
	return r.db.Create(campaign).Error
}

// Update 更新推广活动
func (r *GormCampaignRepository) Update(campaign *models.Campaign) error {
	if campaign == nil || campaign.ID == 0 {
		return nil
	}
	return r.db.Save(campaign).Error
}

// GetByID 按ID获取推广活动
func (r *GormCampaignRepository) GetByID(id uint) (*models.Campaign, error) {
	if id == 0 {
		return nil, nil
	}
	var campaign models.Campaign
	if err := r.db.First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

// GetBySlug 按标识获取推广活动
func (r *GormCampaignRepository) GetBySlug(slug string) (*models.Campaign, error) {
	normalized := strings.ToLower(strings.TrimSpace(slug))
	if normalized == "" {
		return nil, nil
	}
	var campaign models.Campaign
	if err := r.db.Where("slug = ?", normalized).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

// GetDefault 获取默认推广活动
func (r *GormCampaignRepository) GetDefault() (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.db.Where("is_default = ?", true).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

// SetDefault 设置默认推广活动，同事务内先清旧默认再设新默认
func (r *GormCampaignRepository) SetDefault(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Campaign{}).
			Where("is_default = ?", true).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.Campaign{}).
			Where("id = ?", id).
			Update("is_default", true).Error
	})
}

// List 查询推广活动列表（游标分页）
func (r *GormCampaignRepository) List(filter CampaignListFilter) ([]models.Campaign, uint, error) {
	query := r.db.Model(&models.Campaign{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("slug LIKE ? OR name LIKE ?", like, like)
	}
	if filter.Default != nil {
		query = query.Where("is_default = ?", *filter.Default)
	}

	var campaigns []models.Campaign
	if err := applyCursor(query, filter.Cursor, filter.Limit).Find(&campaigns).Error; err != nil {
		return nil, 0, err
	}
	cursor := nextCursor(campaigns, filter.Limit, func(c models.Campaign) uint { return c.ID })
	return campaigns, cursor, nil
}

// CreateProductRate 创建商品级费率
func (r *GormCampaignRepository) CreateProductRate(rate *models.CampaignProductRate) error {
	if rate == nil {
		return nil
	}
	return r.db.Create(rate).Error
}

// GetProductRate 按活动与商品获取费率
func (r *GormCampaignRepository) GetProductRate(campaignID uint, productID string) (*models.CampaignProductRate, error) {
	if campaignID == 0 || strings.TrimSpace(productID) == "" {
		return nil, nil
	}
	var rate models.CampaignProductRate
	err := r.db.Where("campaign_id = ? AND product_id = ?", campaignID, productID).First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}

// ListProductRates 查询活动的全部商品级费率
func (r *GormCampaignRepository) ListProductRates(campaignID uint) ([]models.CampaignProductRate, error) {
	if campaignID == 0 {
		return nil, nil
	}
	var rates []models.CampaignProductRate
	if err := r.db.Where("campaign_id = ?", campaignID).Order("product_id ASC").Find(&rates).Error; err != nil {
		return nil, err
	}
	return rates, nil
}

// DeleteProductRate 删除商品级费率
func (r *GormCampaignRepository) DeleteProductRate(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.CampaignProductRate{}, id).Error
}

// CreateTier 创建阶梯费率
func (r *GormCampaignRepository) CreateTier(tier *models.CampaignTier) error {
	if tier == nil {
		return nil
	}
	return r.db.Create(tier).Error
}

// ListTiers 查询活动阶梯费率，按门槛降序返回便于从高到低匹配
func (r *GormCampaignRepository) ListTiers(campaignID uint) ([]models.CampaignTier, error) {
	if campaignID == 0 {
		return nil, nil
	}
	var tiers []models.CampaignTier
	if err := r.db.Where("campaign_id = ?", campaignID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "min_referrals"}, Desc: true}).
		Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

// DeleteTier 删除阶梯费率
func (r *GormCampaignRepository) DeleteTier(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.CampaignTier{}, id).Error
}
