package ssl

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

// TlsHandler 强制 HTTPS；isDevelopment 为 true 时 secure 库会跳过重定向
func TlsHandler(host string, port int, isDevelopment bool) gin.HandlerFunc {
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect:   true,
		SSLHost:       host + ":" + strconv.Itoa(port),
		IsDevelopment: isDevelopment,
	})
	return func(c *gin.Context) {
		// Process 已经写入了重定向响应，这里只需要终止 gin 的处理链
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
		c.Next()
	}
}
