package repository

import (
	"fmt"
	"time"

	"github.com/refergate/refergate/internal/constants"
	"github.com/refergate/refergate/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository 仪表盘聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type DashboardRepository interface {
	GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error)
	GetEventTrends(startAt, endAt time.Time) ([]DashboardEventTrendRow, error)
	GetTopAffiliates(startAt, endAt time.Time, limit int) ([]DashboardAffiliateRankingRow, error)
}

// DashboardOverviewRow 仪表盘总览原始统计结果
type DashboardOverviewRow struct {
	AffiliatesTotal    int64
	AffiliatesPending  int64
	AffiliatesApproved int64
	Clicks             int64
	Signups            int64
	Conversions        int64
	RevenueCents       int64
	CommissionsTotal   int64
	CommissionsPending int64
	CommissionsPaid    int64
	PendingCents       int64
	PaidCents          int64
	PayoutsPending     int64
	PayoutsCompleted   int64
}

// DashboardEventTrendRow 推广事件趋势统计
type DashboardEventTrendRow struct {
	Day         string
	Clicks      int64
	Signups     int64
	Conversions int64
}

// DashboardAffiliateRankingRow 推广人排行原始行
type DashboardAffiliateRankingRow struct {
	AffiliateID     uint
	Code            string
	Conversions     int64
	RevenueCents    int64
	CommissionCents int64
}

// GormDashboardRepository GORM 仪表盘聚合实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建仪表盘仓库
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

func analyticsBase(db *gorm.DB, startAt, endAt time.Time) *gorm.DB {
	return db.Model(&models.AnalyticsEvent{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt)
}

// GetOverview 获取总览统计
func (r *GormDashboardRepository) GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error) {
	result := DashboardOverviewRow{}

	affiliateBase := func() *gorm.DB {
		return r.db.Model(&models.Affiliate{})
	}
	if err := affiliateBase().Count(&result.AffiliatesTotal).Error; err != nil {
		return result, err
	}
	if err := affiliateBase().Where("status = ?", constants.AffiliateStatusPending).
		Count(&result.AffiliatesPending).Error; err != nil {
		return result, err
	}
	if err := affiliateBase().Where("status = ?", constants.AffiliateStatusApproved).
		Count(&result.AffiliatesApproved).Error; err != nil {
		return result, err
	}

	eventCounts := []struct {
		EventType string
		Total     int64
	}{}
	if err := analyticsBase(r.db, startAt, endAt).
		Select("event_type, COUNT(*) AS total").
		Group("event_type").
		Scan(&eventCounts).Error; err != nil {
		return result, err
	}
	for _, row := range eventCounts {
		switch row.EventType {
		case constants.AnalyticsEventClick:
			result.Clicks = row.Total
		case constants.AnalyticsEventSignup:
			result.Signups = row.Total
		case constants.AnalyticsEventConversion:
			result.Conversions = row.Total
		}
	}

	commissionBase := func() *gorm.DB {
		return r.db.Model(&models.Commission{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}
	if err := commissionBase().Count(&result.CommissionsTotal).Error; err != nil {
		return result, err
	}
	if err := commissionBase().Where("status = ?", constants.CommissionStatusPending).
		Count(&result.CommissionsPending).Error; err != nil {
		return result, err
	}
	if err := commissionBase().Where("status = ?", constants.CommissionStatusPaid).
		Count(&result.CommissionsPaid).Error; err != nil {
		return result, err
	}
	if err := commissionBase().Where("status <> ?", constants.CommissionStatusReversed).
		Select("COALESCE(SUM(sale_amount_cents), 0)").
		Scan(&result.RevenueCents).Error; err != nil {
		return result, err
	}
	pendingStatuses := []string{
		constants.CommissionStatusPending,
		constants.CommissionStatusApproved,
		constants.CommissionStatusProcessing,
	}
	if err := commissionBase().Where("status IN ?", pendingStatuses).
		Select("COALESCE(SUM(commission_amount_cents), 0)").
		Scan(&result.PendingCents).Error; err != nil {
		return result, err
	}
	if err := commissionBase().Where("status = ?", constants.CommissionStatusPaid).
		Select("COALESCE(SUM(commission_amount_cents), 0)").
		Scan(&result.PaidCents).Error; err != nil {
		return result, err
	}

	payoutBase := func() *gorm.DB {
		return r.db.Model(&models.Payout{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}
	if err := payoutBase().Where("status = ?", constants.PayoutStatusPending).
		Count(&result.PayoutsPending).Error; err != nil {
		return result, err
	}
	if err := payoutBase().Where("status = ?", constants.PayoutStatusCompleted).
		Count(&result.PayoutsCompleted).Error; err != nil {
		return result, err
	}

	return result, nil
}

// GetEventTrends 获取点击/注册/转化日趋势
func (r *GormDashboardRepository) GetEventTrends(startAt, endAt time.Time) ([]DashboardEventTrendRow, error) {
	type countRow struct {
		Day       string
		EventType string
		Total     int64
	}

	dayExpr := "CAST(date(created_at) AS TEXT)"
	var rows []countRow
	if err := analyticsBase(r.db, startAt, endAt).
		Select(fmt.Sprintf("%s as day, event_type, COUNT(*) as total", dayExpr)).
		Group(dayExpr + ", event_type").
		Order("day asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	byDay := make(map[string]*DashboardEventTrendRow)
	order := make([]string, 0)
	for _, row := range rows {
		entry, ok := byDay[row.Day]
		if !ok {
			entry = &DashboardEventTrendRow{Day: row.Day}
			byDay[row.Day] = entry
			order = append(order, row.Day)
		}
		switch row.EventType {
		case constants.AnalyticsEventClick:
			entry.Clicks = row.Total
		case constants.AnalyticsEventSignup:
			entry.Signups = row.Total
		case constants.AnalyticsEventConversion:
			entry.Conversions = row.Total
		}
	}

	result := make([]DashboardEventTrendRow, 0, len(order))
	for _, day := range order {
		result = append(result, *byDay[day])
	}
	return result, nil
}

// GetTopAffiliates 按转化额排行推广人
func (r *GormDashboardRepository) GetTopAffiliates(startAt, endAt time.Time, limit int) ([]DashboardAffiliateRankingRow, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []DashboardAffiliateRankingRow
	err := r.db.Model(&models.Commission{}).
		Select("commissions.affiliate_id AS affiliate_id, affiliates.code AS code, " +
			"COUNT(*) AS conversions, " +
			"COALESCE(SUM(commissions.sale_amount_cents), 0) AS revenue_cents, " +
			"COALESCE(SUM(commissions.commission_amount_cents), 0) AS commission_cents").
		Joins("JOIN affiliates ON affiliates.id = commissions.affiliate_id").
		Where("commissions.created_at >= ? AND commissions.created_at < ? AND commissions.status <> ?",
			startAt, endAt, constants.CommissionStatusReversed).
		Group("commissions.affiliate_id, affiliates.code").
		Order("revenue_cents DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
