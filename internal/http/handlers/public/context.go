package public

import (
	handlershared "github.com/refergate/refergate/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (string, bool) {
	return handlershared.GetContextString(c, "user_id")
}
