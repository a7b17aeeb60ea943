package public

import (
	"errors"

	handlershared "github.com/refergate/refergate/internal/http/handlers/shared"
	"github.com/refergate/refergate/internal/http/response"
	"github.com/refergate/refergate/internal/repository"
	"github.com/refergate/refergate/internal/service"

	"github.com/gin-gonic/gin"
)

// AffiliateRegisterRequest 推广人注册请求
type AffiliateRegisterRequest struct {
	CampaignSlug string `json:"campaign_slug"`
	PayoutEmail  string `json:"payout_email"`
}

// AffiliateRegister 注册成为推广人
func (h *Handler) AffiliateRegister(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req AffiliateRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}

	affiliate, err := h.AffiliateService.Register(service.AffiliateRegisterInput{
		UserID:       userID,
		CampaignSlug: req.CampaignSlug,
		PayoutEmail:  req.PayoutEmail,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeBadRequest, "campaign not found", nil)
			return
		}
		respondWithMappedError(c, err, affiliatePortalErrorRules, response.CodeInternal, "internal error")
		return
	}
	response.Success(c, affiliate)
}

// AffiliatePortal 推广人门户首页数据
func (h *Handler) AffiliatePortal(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	portal, err := h.AffiliateService.Portal(userID)
	if err != nil {
		respondWithMappedError(c, err, affiliatePortalErrorRules, response.CodeInternal, "internal error")
		return
	}
	response.Success(c, portal)
}

// AffiliateLink 获取推广链接
func (h *Handler) AffiliateLink(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	affiliate, err := h.AffiliateService.GetByUserID(userID)
	if err != nil {
		respondWithMappedError(c, err, affiliatePortalErrorRules, response.CodeInternal, "internal error")
		return
	}
	response.Success(c, gin.H{
		"code": affiliate.Code,
		"link": h.AffiliateService.BuildLink(affiliate.Code),
	})
}

// AffiliateCommissions 查询我的佣金（游标分页）
func (h *Handler) AffiliateCommissions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	affiliate, err := h.AffiliateService.GetByUserID(userID)
	if err != nil {
		respondWithMappedError(c, err, affiliatePortalErrorRules, response.CodeInternal, "internal error")
		return
	}

	cursor, limit := handlershared.ParseCursorQuery(c)
	commissions, nextCursor, err := h.LedgerService.List(repository.CommissionListFilter{
		AffiliateID: affiliate.ID,
		Status:      c.Query("status"),
		Cursor:      cursor,
		Limit:       limit,
	})
	if err != nil {
		requestLog(c).Errorw("affiliate_commissions_query_failed", "affiliate_id", affiliate.ID, "error", err)
		respondError(c, response.CodeInternal, "internal error", err)
		return
	}
	response.SuccessWithCursor(c, commissions, nextCursor)
}

// AffiliatePayouts 查询我的结算单（游标分页）
func (h *Handler) AffiliatePayouts(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	affiliate, err := h.AffiliateService.GetByUserID(userID)
	if err != nil {
		respondWithMappedError(c, err, affiliatePortalErrorRules, response.CodeInternal, "internal error")
		return
	}

	cursor, limit := handlershared.ParseCursorQuery(c)
	payouts, nextCursor, err := h.PayoutService.List(repository.PayoutListFilter{
		AffiliateID: affiliate.ID,
		Status:      c.Query("status"),
		Cursor:      cursor,
		Limit:       limit,
	})
	if err != nil {
		requestLog(c).Errorw("affiliate_payouts_query_failed", "affiliate_id", affiliate.ID, "error", err)
		respondError(c, response.CodeInternal, "internal error", err)
		return
	}
	response.SuccessWithCursor(c, payouts, nextCursor)
}

// AttributeSignupRequest 注册归因请求
type AttributeSignupRequest struct {
	ReferralID string `json:"referral_id"`
	Code       string `json:"code"`
}

// AttributeSignup 注册归因
// 对外只暴露成功与否，拒绝原因只进日志
func (h *Handler) AttributeSignup(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req AttributeSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}
	if req.ReferralID == "" && req.Code == "" {
		respondError(c, response.CodeBadRequest, "referral_id or code is required", nil)
		return
	}

	var (
		outcome service.AttributionOutcome
		err     error
	)
	if req.ReferralID != "" {
		outcome, err = h.AttributionService.AttributeSignup(req.ReferralID, userID)
	} else {
		outcome, err = h.AttributionService.AttributeSignupByCode(req.Code, userID)
	}
	if err != nil {
		requestLog(c).Errorw("attribute_signup_failed", "user_id", userID, "error", err)
		respondError(c, response.CodeInternal, "internal error", err)
		return
	}
	response.Success(c, gin.H{"success": outcome.OK})
}
