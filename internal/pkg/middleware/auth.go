package middleware

import (
	"net/http"
	"strings"

	"storefront/internal/pkg/config"
	"storefront/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ClerkClaims Clerk 会话 Token 的 Claims
// 凭证校验完全委托给 Clerk，这里只解析会话 Token 并信任其中的身份标识
type ClerkClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// AuthMiddleware Clerk 会话认证中间件
// 解析 "Authorization: Bearer <session token>"，把 clerkID / sessionID 写入上下文
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Authorization header is required")
			c.Abort()
			return
		}

		// 检查格式 "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := parseSessionToken(parts[1])
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired session token")
			c.Abort()
			return
		}

		// sub 即 Clerk 用户 ID
		c.Set("clerkID", claims.Subject)
		c.Set("sessionID", claims.SessionID)

		c.Next()
	}
}

// parseSessionToken 验证并解析 Clerk 会话 Token
func parseSessionToken(tokenString string) (*ClerkClaims, error) {
	cfg := config.GlobalConfig.Clerk

	token, err := jwt.ParseWithClaims(tokenString, &ClerkClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(cfg.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*ClerkClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}

	if cfg.Issuer != "" {
		if iss, _ := claims.GetIssuer(); iss != cfg.Issuer {
			return nil, jwt.ErrTokenInvalidIssuer
		}
	}

	return claims, nil
}

// GetClerkID 从上下文取出当前调用者的 Clerk 用户 ID
func GetClerkID(c *gin.Context) string {
	val, _ := c.Get("clerkID")
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}
