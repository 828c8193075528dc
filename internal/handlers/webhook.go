package handlers

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/storefront-settlement/internal/apperr"
	"github.com/imrishuroy/storefront-settlement/internal/settlement"
	"github.com/imrishuroy/storefront-settlement/internal/validation"
)

const maxWebhookBody = 64 << 10

func (s *server) paymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		s.writeError(c, apperr.Validationf("read body: %v", err))
		return
	}
	if s.cfg.WebhookSecret != "" && !verifySignature(s.cfg.WebhookSecret, body, c.GetHeader(SignatureHeader)) {
		s.log.Warn("webhook signature mismatch", "remote", c.ClientIP())
		s.writeError(c, apperr.Unauthorizedf("invalid webhook signature"))
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var req validation.WebhookRequest
	if err := validation.BindAndValidate(c, &req, s.v); err != nil {
		return
	}

	res, err := s.cfg.Settlement.HandleWebhook(c.Request.Context(), settlement.Notification{
		PaymentID:   req.ID.String(),
		State:       req.State,
		OrderNumber: req.OrderNumber,
		Raw:         string(body),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"status":        res.Order.Status,
		"paymentStatus": res.Order.PaymentStatus,
	})
}
