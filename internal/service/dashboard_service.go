package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/refergate/refergate/internal/cache"
	"github.com/refergate/refergate/internal/repository"
	"github.com/shopspring/decimal"
)

const (
	dashboardCacheTTL      = 45 * time.Second
	dashboardCustomMaxDays = 90
	dashboardRankingLimit  = 10
)

// ErrDashboardRangeInvalid 仪表盘时间范围非法
var ErrDashboardRangeInvalid = errors.New("invalid dashboard range")

// DashboardService 仪表盘服务
// 说明：聚合后台首页推广经营数据。
type DashboardService struct {
	repo repository.DashboardRepository
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// DashboardQueryInput 仪表盘查询输入
type DashboardQueryInput struct {
	Range        string
	From         *time.Time
	To           *time.Time
	Timezone     string
	ForceRefresh bool
}

// DashboardOverviewResponse 仪表盘总览响应
type DashboardOverviewResponse struct {
	Range    string          `json:"range"`
	From     string          `json:"from"`
	To       string          `json:"to"`
	Timezone string          `json:"timezone"`
	KPI      DashboardKPI    `json:"kpi"`
	Funnel   DashboardFunnel `json:"funnel"`
}

// DashboardKPI 仪表盘核心指标
type DashboardKPI struct {
	AffiliatesTotal    int64  `json:"affiliates_total"`
	AffiliatesPending  int64  `json:"affiliates_pending"`
	AffiliatesApproved int64  `json:"affiliates_approved"`
	Clicks             int64  `json:"clicks"`
	Signups            int64  `json:"signups"`
	Conversions        int64  `json:"conversions"`
	Revenue            string `json:"revenue"`
	CommissionsTotal   int64  `json:"commissions_total"`
	CommissionsPending int64  `json:"commissions_pending"`
	CommissionsPaid    int64  `json:"commissions_paid"`
	PendingAmount      string `json:"pending_amount"`
	PaidAmount         string `json:"paid_amount"`
	PayoutsPending     int64  `json:"payouts_pending"`
	PayoutsCompleted   int64  `json:"payouts_completed"`
}

// DashboardFunnel 推广转化漏斗
type DashboardFunnel struct {
	Clicks          int64  `json:"clicks"`
	Signups         int64  `json:"signups"`
	Conversions     int64  `json:"conversions"`
	SignupRate      string `json:"signup_rate"`
	ConversionRate  string `json:"conversion_rate"`
	ClickToSaleRate string `json:"click_to_sale_rate"`
}

// DashboardTrendResponse 仪表盘趋势响应
type DashboardTrendResponse struct {
	Range    string                `json:"range"`
	From     string                `json:"from"`
	To       string                `json:"to"`
	Timezone string                `json:"timezone"`
	Points   []DashboardTrendPoint `json:"points"`
}

// DashboardTrendPoint 趋势点
type DashboardTrendPoint struct {
	Date        string `json:"date"`
	Clicks      int64  `json:"clicks"`
	Signups     int64  `json:"signups"`
	Conversions int64  `json:"conversions"`
}

// DashboardRankingsResponse 仪表盘排行榜响应
type DashboardRankingsResponse struct {
	Range         string                      `json:"range"`
	From          string                      `json:"from"`
	To            string                      `json:"to"`
	Timezone      string                      `json:"timezone"`
	TopAffiliates []DashboardAffiliateRanking `json:"top_affiliates"`
}

// DashboardAffiliateRanking 推广人排行项
type DashboardAffiliateRanking struct {
	AffiliateID uint   `json:"affiliate_id"`
	Code        string `json:"code"`
	Conversions int64  `json:"conversions"`
	Revenue     string `json:"revenue"`
	Commission  string `json:"commission"`
}

type dashboardWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
	timezone string
}

// GetOverview 获取仪表盘总览
func (s *DashboardService) GetOverview(ctx context.Context, input DashboardQueryInput) (*DashboardOverviewResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardOverviewResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:overview:%s:%d:%d:%s",
		window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardOverviewResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	overview, err := s.repo.GetOverview(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}

	signupRate := 0.0
	if overview.Clicks > 0 {
		signupRate = float64(overview.Signups) / float64(overview.Clicks) * 100
	}
	conversionRate := 0.0
	if overview.Signups > 0 {
		conversionRate = float64(overview.Conversions) / float64(overview.Signups) * 100
	}
	clickToSaleRate := 0.0
	if overview.Clicks > 0 {
		clickToSaleRate = float64(overview.Conversions) / float64(overview.Clicks) * 100
	}

	response := &DashboardOverviewResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		KPI: DashboardKPI{
			AffiliatesTotal:    overview.AffiliatesTotal,
			AffiliatesPending:  overview.AffiliatesPending,
			AffiliatesApproved: overview.AffiliatesApproved,
			Clicks:             overview.Clicks,
			Signups:            overview.Signups,
			Conversions:        overview.Conversions,
			Revenue:            formatCents(overview.RevenueCents),
			CommissionsTotal:   overview.CommissionsTotal,
			CommissionsPending: overview.CommissionsPending,
			CommissionsPaid:    overview.CommissionsPaid,
			PendingAmount:      formatCents(overview.PendingCents),
			PaidAmount:         formatCents(overview.PaidCents),
			PayoutsPending:     overview.PayoutsPending,
			PayoutsCompleted:   overview.PayoutsCompleted,
		},
		Funnel: DashboardFunnel{
			Clicks:          overview.Clicks,
			Signups:         overview.Signups,
			Conversions:     overview.Conversions,
			SignupRate:      formatPercentValue(signupRate),
			ConversionRate:  formatPercentValue(conversionRate),
			ClickToSaleRate: formatPercentValue(clickToSaleRate),
		},
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetTrends 获取日趋势
func (s *DashboardService) GetTrends(ctx context.Context, input DashboardQueryInput) (*DashboardTrendResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardTrendResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:trends:%s:%d:%d:%s",
		window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardTrendResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	rows, err := s.repo.GetEventTrends(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}
	points := make([]DashboardTrendPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, DashboardTrendPoint{
			Date:        row.Day,
			Clicks:      row.Clicks,
			Signups:     row.Signups,
			Conversions: row.Conversions,
		})
	}

	response := &DashboardTrendResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		Points:   points,
	}
	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetRankings 获取推广人排行榜
func (s *DashboardService) GetRankings(ctx context.Context, input DashboardQueryInput) (*DashboardRankingsResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardRankingsResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:rankings:%s:%d:%d:%s",
		window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardRankingsResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	rows, err := s.repo.GetTopAffiliates(window.startAt, window.endAt, dashboardRankingLimit)
	if err != nil {
		return nil, err
	}
	rankings := make([]DashboardAffiliateRanking, 0, len(rows))
	for _, row := range rows {
		rankings = append(rankings, DashboardAffiliateRanking{
			AffiliateID: row.AffiliateID,
			Code:        row.Code,
			Conversions: row.Conversions,
			Revenue:     formatCents(row.RevenueCents),
			Commission:  formatCents(row.CommissionCents),
		})
	}

	response := &DashboardRankingsResponse{
		Range:         window.rangeKey,
		From:          window.startAt.Format(time.RFC3339),
		To:            window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone:      window.timezone,
		TopAffiliates: rankings,
	}
	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

func resolveDashboardWindow(input DashboardQueryInput, now time.Time) (dashboardWindow, error) {
	rangeKey := strings.ToLower(strings.TrimSpace(input.Range))
	if rangeKey == "" {
		rangeKey = "7d"
	}

	timezone := strings.TrimSpace(input.Timezone)
	location := time.Local
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			location = parsed
		} else {
			timezone = ""
		}
	}
	if timezone == "" {
		timezone = location.String()
	}

	localNow := now.In(location)
	todayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, location)
	window := dashboardWindow{rangeKey: rangeKey, timezone: timezone}

	switch rangeKey {
	case "today":
		window.startAt = todayStart
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "7d":
		window.startAt = todayStart.AddDate(0, 0, -6)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "30d":
		window.startAt = todayStart.AddDate(0, 0, -29)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "custom":
		if input.From == nil || input.To == nil {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		startAt := input.From.In(location)
		endAt := input.To.In(location)
		if endAt.Before(startAt) {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		if endAt.Sub(startAt) > time.Hour*24*dashboardCustomMaxDays {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		window.startAt = startAt
		window.endAt = endAt.Add(time.Second)
	default:
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}

	if !window.endAt.After(window.startAt) {
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}
	return window, nil
}

func formatCents(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}

func formatPercentValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
