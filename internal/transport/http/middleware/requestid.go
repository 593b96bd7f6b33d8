package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// KeyRequestID 请求链路 ID 的头名兼上下文键，AccessLog 用它串起一次请求
const KeyRequestID = "X-Request-ID"

// RequestID 透传调用方带来的链路 ID；没带就补一个 uuid，
// 并回写到响应头方便客户端对账
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.Request.Header.Get(KeyRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(KeyRequestID, rid)
		c.Set(KeyRequestID, rid)
		c.Next()
	}
}
