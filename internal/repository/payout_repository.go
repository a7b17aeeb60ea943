package repository

import (
	"errors"
	"strings"

	"github.com/refergate/refergate/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PayoutRepository 结算单数据访问接口
type PayoutRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) PayoutRepository

	Create(payout *models.Payout) error
	Update(payout *models.Payout) error
	GetByID(id uint) (*models.Payout, error)
	GetByIDForUpdate(id uint) (*models.Payout, error)
	List(filter PayoutListFilter) ([]models.Payout, uint, error)
}

// GormPayoutRepository GORM 结算单仓储
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository 创建结算单仓储
func NewPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPayoutRepository) WithTx(tx *gorm.DB) PayoutRepository {
	if tx == nil {
		return r
	}
	return &GormPayoutRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPayoutRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建结算单
func (r *GormPayoutRepository) Create(payout *models.Payout) error {
	return r.db.Create(payout).Error
}

// Update 更新结算单
func (r *GormPayoutRepository) Update(payout *models.Payout) error {
	if payout == nil || payout.ID == 0 {
		return nil
	}
	return r.db.Save(payout).Error
}

// GetByID 按ID获取结算单
func (r *GormPayoutRepository) GetByID(id uint) (*models.Payout, error) {
	if id == 0 {
		return nil, nil
	}
	var payout models.Payout
	if err := r.db.First(&payout, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// GetByIDForUpdate 按ID获取结算单并加行锁
func (r *GormPayoutRepository) GetByIDForUpdate(id uint) (*models.Payout, error) {
	if id == 0 {
		return nil, nil
	}
	var payout models.Payout
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payout, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// List 查询结算单列表（游标分页）
func (r *GormPayoutRepository) List(filter PayoutListFilter) ([]models.Payout, uint, error) {
	query := r.db.Model(&models.Payout{})
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var rows []models.Payout
	if err := applyCursor(query, filter.Cursor, filter.Limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	cursor := nextCursor(rows, filter.Limit, func(p models.Payout) uint { return p.ID })
	return rows, cursor, nil
}
