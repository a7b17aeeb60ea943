package admin

import (
	"strconv"

	handlershared "github.com/refergate/refergate/internal/http/handlers/shared"
	"github.com/refergate/refergate/internal/http/response"
	"github.com/refergate/refergate/internal/models"
	"github.com/refergate/refergate/internal/repository"
	"github.com/refergate/refergate/internal/service"

	"github.com/gin-gonic/gin"
)

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid id", nil)
		return 0, false
	}
	return uint(id), true
}

// CreateCampaign 创建推广活动
func (h *Handler) CreateCampaign(c *gin.Context) {
	var input service.CampaignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}
	campaign, err := h.CampaignService.Create(input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, campaign)
}

// UpdateCampaign 更新推广活动
func (h *Handler) UpdateCampaign(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var input service.CampaignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}
	campaign, err := h.CampaignService.Update(id, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, campaign)
}

// GetCampaign 获取推广活动详情
func (h *Handler) GetCampaign(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	campaign, err := h.CampaignService.GetByID(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, campaign)
}

// ListCampaigns 查询推广活动列表
func (h *Handler) ListCampaigns(c *gin.Context) {
	cursor, limit := handlershared.ParseCursorQuery(c)
	campaigns, nextCursor, err := h.CampaignService.List(repository.CampaignListFilter{
		Cursor: cursor,
		Limit:  limit,
		Search: c.Query("search"),
	})
	if err != nil {
		requestLog(c).Errorw("campaign_list_failed", "error", err)
		respondError(c, response.CodeInternal, "internal error", err)
		return
	}
	response.SuccessWithCursor(c, campaigns, nextCursor)
}

// SetDefaultCampaign 设为默认活动
func (h *Handler) SetDefaultCampaign(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	campaign, err := h.CampaignService.SetDefault(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, campaign)
}

// CampaignProductRateRequest 商品级费率请求
type CampaignProductRateRequest struct {
	ProductID string      `json:"product_id" binding:"required"`
	RateType  string      `json:"rate_type" binding:"required"`
	RateValue models.Rate `json:"rate_value"`
}

// CreateCampaignProductRate 设置商品级费率
func (h *Handler) CreateCampaignProductRate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req CampaignProductRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}
	rate, err := h.CampaignService.SetProductRate(id, req.ProductID, req.RateType, req.RateValue)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, rate)
}

// ListCampaignProductRates 查询商品级费率
func (h *Handler) ListCampaignProductRates(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	rates, err := h.CampaignService.ListProductRates(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, rates)
}

// DeleteCampaignProductRate 删除商品级费率
func (h *Handler) DeleteCampaignProductRate(c *gin.Context) {
	rateID, err := strconv.ParseUint(c.Param("rate_id"), 10, 64)
	if err != nil || rateID == 0 {
		respondError(c, response.CodeBadRequest, "invalid id", nil)
		return
	}
	if err := h.CampaignService.DeleteProductRate(uint(rateID)); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// CampaignTierRequest 阶梯费率请求
type CampaignTierRequest struct {
	MinReferrals int64       `json:"min_referrals"`
	RateType     string      `json:"rate_type" binding:"required"`
	RateValue    models.Rate `json:"rate_value"`
}

// CreateCampaignTier 添加阶梯费率
func (h *Handler) CreateCampaignTier(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req CampaignTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}
	tier, err := h.CampaignService.AddTier(id, req.MinReferrals, req.RateType, req.RateValue)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, tier)
}

// ListCampaignTiers 查询阶梯费率
func (h *Handler) ListCampaignTiers(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	tiers, err := h.CampaignService.ListTiers(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, tiers)
}

// DeleteCampaignTier 删除阶梯费率
func (h *Handler) DeleteCampaignTier(c *gin.Context) {
	tierID, err := strconv.ParseUint(c.Param("tier_id"), 10, 64)
	if err != nil || tierID == 0 {
		respondError(c, response.CodeBadRequest, "invalid id", nil)
		return
	}
	if err := h.CampaignService.DeleteTier(uint(tierID)); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, nil)
}
