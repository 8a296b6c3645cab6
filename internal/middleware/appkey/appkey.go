package appkey

import (
	"crypto/subtle"

	"LiveDock/pkg/back"
	"LiveDock/pkg/xerr"

	"github.com/gin-gonic/gin"
)

const HeaderName = "X-App-Key"

// AppKey 通知回调不带 cookie，靠应用密钥鉴权
func AppKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(HeaderName)
		if got == "" {
			back.Abort(c, xerr.BadRequest, "App key is required")
			return
		}
		if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			back.Abort(c, xerr.Unauthorized, "Invalid app key")
			return
		}
		c.Next()
	}
}
