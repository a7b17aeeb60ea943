package public

import (
	"errors"

	"github.com/refergate/refergate/internal/http/response"
	"github.com/refergate/refergate/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var affiliatePortalErrorRules = []mappedHandlerError{
	{target: service.ErrNotFound, code: response.CodeNotFound, msg: "affiliate profile not found"},
	{target: service.ErrAlreadyExists, code: response.CodeBadRequest, msg: "affiliate profile already exists"},
	{target: service.ErrInvalidInput, code: response.CodeBadRequest, msg: "invalid request"},
}
