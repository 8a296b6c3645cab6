package handler

import (
	"LiveDock/internal/middleware/jwt"
	"LiveDock/internal/modules/user/application/service"
	"LiveDock/pkg/back"

	"github.com/gin-gonic/gin"
)

type UserInfoHandler struct {
	svc service.UserInfoService
}

func NewUserInfoHandler(svc service.UserInfoService) *UserInfoHandler {
	return &UserInfoHandler{svc: svc}
}

// Me 返回当前登录用户
func (h *UserInfoHandler) Me(c *gin.Context) {
	data, err := h.svc.GetUserInfo(c.Request.Context(), jwt.CurrentUserID(c))
	back.Result(c, data, err)
}
