package shared

import (
	"strings"

	"github.com/refergate/refergate/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetContextString 从上下文读取字符串身份标识并统一处理错误响应。
// 身份由宿主系统签发的 JWT 注入，缺失即视为未认证。
func GetContextString(c *gin.Context, key string) (string, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return "", false
	}
	str, ok := value.(string)
	if !ok || strings.TrimSpace(str) == "" {
		RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return "", false
	}
	return str, true
}
