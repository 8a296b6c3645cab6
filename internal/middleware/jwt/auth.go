package jwt

import (
	"context"
	"strings"

	"LiveDock/internal/modules/user/domain/entity"
	"LiveDock/pkg/back"
	"LiveDock/pkg/util/myjwt"
	"LiveDock/pkg/xerr"
	"LiveDock/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxUserID   = "userId"
	ctxUserRole = "role"
	ctxUser     = "user"
)

// UserResolver 根据 token 中的 userId 加载当前用户
type UserResolver interface {
	GetActiveUser(ctx context.Context, id int64) (*entity.User, error)
}

// Auth 先取 cookie 中的 token，再取 Bearer 头
func Auth(key string, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			back.Abort(c, xerr.Unauthorized, "Token not found")
			return
		}

		claims, err := myjwt.ParseToken(key, token)
		if err != nil {
			zlog.Debug("jwt rejected", zap.Error(err))
			back.Abort(c, xerr.Unauthorized, "Invalid token")
			return
		}

		user, err := users.GetActiveUser(c.Request.Context(), claims.UserID)
		if err != nil {
			if ce, ok := xerr.As(err); ok {
				back.Abort(c, ce.Code, ce.Message)
				return
			}
			back.Abort(c, xerr.Unauthorized, "Invalid token")
			return
		}

		c.Set(ctxUserID, user.ID)
		c.Set(ctxUserRole, user.Role)
		c.Set(ctxUser, user)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if v, err := c.Cookie(myjwt.CookieName); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func CurrentUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

func CurrentUserRole(c *gin.Context) string {
	return c.GetString(ctxUserRole)
}

func CurrentUser(c *gin.Context) *entity.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	u, _ := v.(*entity.User)
	return u
}
