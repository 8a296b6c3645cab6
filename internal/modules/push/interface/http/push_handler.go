package handler

import (
	"LiveDock/internal/middleware/jwt"
	"LiveDock/internal/modules/push/application/dto/request"
	"LiveDock/internal/modules/push/application/service"
	"LiveDock/pkg/back"
	"LiveDock/pkg/xerr"
	"LiveDock/pkg/zlog"

	"github.com/gin-gonic/gin"
)

type PushHandler struct {
	svc service.SubscriptionService
}

func NewPushHandler(svc service.SubscriptionService) *PushHandler {
	return &PushHandler{svc: svc}
}

func (h *PushHandler) Subscribe(c *gin.Context) {
	var req request.SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, "Subscription is required")
		return
	}

	data, err := h.svc.Subscribe(c.Request.Context(), jwt.CurrentUserID(c), req)
	back.Result(c, data, err)
}

func (h *PushHandler) Unsubscribe(c *gin.Context) {
	var req request.SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, "Subscription is required")
		return
	}

	data, err := h.svc.Unsubscribe(c.Request.Context(), jwt.CurrentUserID(c), req)
	back.Result(c, data, err)
}

func (h *PushHandler) PublicKey(c *gin.Context) {
	data, err := h.svc.PublicKey()
	back.Result(c, data, err)
}
