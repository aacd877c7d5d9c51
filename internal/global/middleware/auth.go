package middleware

import (
	"errors"
	"instavision/internal/global/jwt"
	"instavision/internal/global/response"
	"instavision/internal/model"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// Authenticate 校验 Bearer 令牌并把 claims 写入上下文，不查询数据库
func Authenticate(issuer *jwt.Issuer, revoker jwt.Revoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			response.Fail(c, response.ErrNoToken)
			return
		}
		token := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := issuer.ParseToken(token)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			response.Fail(c, response.ErrTokenExpired)
			return
		case errors.Is(err, jwt.ErrTokenInvalid):
			response.Fail(c, response.ErrTokenInvalid)
			return
		case err != nil:
			response.Fail(c, response.ErrAuthFailed.WithOrigin(err))
			return
		}

		if revoker != nil {
			revoked, err := revoker.IsRevoked(c.Request.Context(), claims)
			if err != nil {
				response.Fail(c, response.ErrAuthFailed.WithOrigin(err))
				return
			}
			if revoked {
				response.Fail(c, response.ErrTokenInvalid)
				return
			}
		}

		c.Set(jwt.PayloadKey, claims)
		c.Next()
	}
}

// Authorize 要求当前身份属于给定角色之一，需放在 Authenticate 之后
func Authorize(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := jwt.GetUserPayload(c)
		if !ok {
			response.Fail(c, response.ErrUnauthorized)
			return
		}
		if !slices.Contains(roles, claims.Role) {
			response.Fail(c, response.ErrForbidden)
			return
		}
		c.Next()
	}
}
