package admin

import (
	handlershared "github.com/refergate/refergate/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (string, bool) {
	return handlershared.GetContextString(c, "admin_id")
}
