package public

import (
	"strings"

	"github.com/refergate/refergate/internal/http/response"
	"github.com/refergate/refergate/internal/service"

	"github.com/gin-gonic/gin"
)

func serviceTrackClickInput(c *gin.Context, req TrackClickRequest) service.TrackClickInput {
	return service.TrackClickInput{
		Code:        req.Code,
		LandingPage: req.LandingPage,
		ClientIP:    c.ClientIP(),
	}
}

// TrackClickRequest 点击上报请求
type TrackClickRequest struct {
	Code        string `json:"code" binding:"required"`
	LandingPage string `json:"landing_page"`
}

// TrackClick 记录推广点击
// 无效推荐码与被限流的点击不暴露给调用方，一律返回成功空结果
func (h *Handler) TrackClick(c *gin.Context) {
	var req TrackClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}

	referralID, err := h.TrackerService.TrackClick(serviceTrackClickInput(c, req))
	if err != nil {
		requestLog(c).Errorw("track_click_failed", "code", req.Code, "error", err)
		respondError(c, response.CodeInternal, "internal error", err)
		return
	}
	response.Success(c, gin.H{"referral_id": referralID})
}

// ValidateCode 校验推荐码
func (h *Handler) ValidateCode(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	valid, err := h.TrackerService.ValidateCode(code)
	if err != nil {
		requestLog(c).Errorw("validate_code_failed", "code", code, "error", err)
		respondError(c, response.CodeInternal, "internal error", err)
		return
	}
	response.Success(c, gin.H{"valid": valid})
}

// GetDiscount 查询被推荐人优惠
// 按 referral_id 查询受归因窗口约束，按 code 查询不受限
func (h *Handler) GetDiscount(c *gin.Context) {
	referralID := strings.TrimSpace(c.Query("referral_id"))
	code := strings.TrimSpace(c.Query("code"))
	if referralID == "" && code == "" {
		respondError(c, response.CodeBadRequest, "referral_id or code is required", nil)
		return
	}

	var (
		discount interface{}
		err      error
	)
	if referralID != "" {
		discount, err = h.TrackerService.GetRefereeDiscountByReferralID(referralID)
	} else {
		discount, err = h.TrackerService.GetRefereeDiscountByCode(code)
	}
	if err != nil {
		requestLog(c).Errorw("get_discount_failed", "referral_id", referralID, "code", code, "error", err)
		respondError(c, response.CodeInternal, "internal error", err)
		return
	}
	response.Success(c, gin.H{"discount": discount})
}
