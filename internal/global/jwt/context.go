package jwt

import (
	"github.com/gin-gonic/gin"
)

// PayloadKey 认证成功后 claims 在 gin.Context 中的键
const PayloadKey = "payload"

func GetUserPayload(c *gin.Context) (userPayload *Claims, exist bool) {
	payload, _ := c.Get(PayloadKey)
	userPayload, exist = payload.(*Claims)
	return
}
