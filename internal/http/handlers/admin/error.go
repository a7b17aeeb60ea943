package admin

import (
	"errors"

	handlershared "github.com/refergate/refergate/internal/http/handlers/shared"
	"github.com/refergate/refergate/internal/http/response"
	"github.com/refergate/refergate/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

// respondServiceError 统一映射业务错误。
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(c, response.CodeNotFound, "resource not found", nil)
	case errors.Is(err, service.ErrAlreadyExists):
		respondError(c, response.CodeBadRequest, "resource already exists", nil)
	case errors.Is(err, service.ErrInvalidInput):
		respondError(c, response.CodeBadRequest, "invalid request", nil)
	case errors.Is(err, service.ErrInvalidStatus):
		respondError(c, response.CodeBadRequest, "invalid status transition", nil)
	case errors.Is(err, service.ErrSlugImmutable):
		respondError(c, response.CodeBadRequest, "campaign slug cannot be changed", nil)
	case errors.Is(err, service.ErrMinPayoutNotMet):
		respondError(c, response.CodeBadRequest, "minimum payout amount not met", nil)
	case errors.Is(err, service.ErrDashboardRangeInvalid):
		respondError(c, response.CodeBadRequest, "invalid dashboard range", nil)
	default:
		respondError(c, response.CodeInternal, "internal error", err)
	}
}
