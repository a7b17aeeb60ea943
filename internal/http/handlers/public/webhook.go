package public

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/refergate/refergate/internal/payment/provider"

	"github.com/gin-gonic/gin"
)

// PaymentWebhook 支付网关回调入口
// 网关按 HTTP 状态码重试：400 签名缺失、401 验签失败、500 内部错误可重试
func (h *Handler) PaymentWebhook(c *gin.Context) {
	log := requestLog(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warnw("payment_webhook_body_read_failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	headers := make(map[string]string)
	for key, values := range c.Request.Header {
		if len(values) == 0 {
			continue
		}
		headers[key] = values[0]
	}

	cfg := &provider.Config{
		Secret:           h.Config.Webhook.Secret,
		ToleranceSeconds: int64(h.Config.Webhook.ToleranceSeconds),
	}
	event, err := provider.VerifyAndParse(cfg, headers, body, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrSignatureMissing):
			log.Warnw("payment_webhook_signature_missing", "client_ip", c.ClientIP())
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing signature"})
		case errors.Is(err, provider.ErrSignatureInvalid):
			log.Warnw("payment_webhook_signature_invalid", "client_ip", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		default:
			log.Warnw("payment_webhook_payload_invalid", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		}
		return
	}

	log.Infow("payment_webhook_received",
		"event_id", event.ID,
		"event_type", event.Type,
		"client_ip", c.ClientIP(),
		"body_size", len(body),
	)

	if err := h.WebhookService.HandleEvent(event); err != nil {
		log.Errorw("payment_webhook_handle_failed",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
