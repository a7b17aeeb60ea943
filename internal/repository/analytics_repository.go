package repository

import (
	"strings"
	"time"

	"github.com/refergate/refergate/internal/models"
	"gorm.io/gorm"
)

// AnalyticsSummary 分析事件聚合结果
type AnalyticsSummary struct {
	Clicks          int64 `json:"clicks"`
	Signups         int64 `json:"signups"`
	Conversions     int64 `json:"conversions"`
	Refunds         int64 `json:"refunds"`
	RevenueCents    int64 `json:"revenue_cents"`
	CommissionCents int64 `json:"commission_cents"`
}

// AnalyticsRepository 分析事件数据访问接口（只追加）
type AnalyticsRepository interface {
	WithTx(tx *gorm.DB) AnalyticsRepository

	Append(event *models.AnalyticsEvent) error
	List(filter AnalyticsEventListFilter) ([]models.AnalyticsEvent, uint, error)
	Summary(affiliateID uint, from, to *time.Time) (*AnalyticsSummary, error)
}

// GormAnalyticsRepository GORM 分析事件仓储
type GormAnalyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository 创建分析事件仓储
func NewAnalyticsRepository(db *gorm.DB) *GormAnalyticsRepository {
	return &GormAnalyticsRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAnalyticsRepository) WithTx(tx *gorm.DB) AnalyticsRepository {
	if tx == nil {
		return r
	}
	return &GormAnalyticsRepository{db: tx}
}

// Append 追加分析事件
func (r *GormAnalyticsRepository) Append(event *models.AnalyticsEvent) error {
	if event == nil {
		return nil
	}
	return r.db.Create(event).Error
}

// List 查询分析事件列表（游标分页）
func (r *GormAnalyticsRepository) List(filter AnalyticsEventListFilter) ([]models.AnalyticsEvent, uint, error) {
	query := r.db.Model(&models.AnalyticsEvent{})
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if eventType := strings.TrimSpace(filter.EventType); eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var rows []models.AnalyticsEvent
	if err := applyCursor(query, filter.Cursor, filter.Limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	cursor := nextCursor(rows, filter.Limit, func(e models.AnalyticsEvent) uint { return e.ID })
	return rows, cursor, nil
}

// Summary 聚合分析事件，affiliateID 为 0 时聚合全站
func (r *GormAnalyticsRepository) Summary(affiliateID uint, from, to *time.Time) (*AnalyticsSummary, error) {
	query := r.db.Model(&models.AnalyticsEvent{})
	if affiliateID != 0 {
		query = query.Where("affiliate_id = ?", affiliateID)
	}
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	var rows []struct {
		EventType string
		Total     int64
		Amount    int64
	}
	err := query.
		Select("event_type, COUNT(*) AS total, COALESCE(SUM(amount_cents), 0) AS amount").
		Group("event_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := &AnalyticsSummary{}
	for _, row := range rows {
		switch row.EventType {
		case "click":
			summary.Clicks = row.Total
		case "signup":
			summary.Signups = row.Total
		case "conversion":
			summary.Conversions = row.Total
			summary.RevenueCents = row.Amount
		case "refund":
			summary.Refunds = row.Total
		case "payout":
			summary.CommissionCents = row.Amount
		}
	}
	return summary, nil
}
