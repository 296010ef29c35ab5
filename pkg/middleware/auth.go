package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/railops/train-reservation/pkg/response"
)

const (
	// ContextKeyAccountID is the gin context key holding the caller's account id
	ContextKeyAccountID = "account_id"
)

// AuthConfig holds JWT validation settings
type AuthConfig struct {
	Secret string
	Issuer string
}

// Claims are the JWT claims issued by the auth service
type Claims struct {
	AccountID string `json:"account_id"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the Bearer token and stores the account id in
// the request context. Token issuance lives in the auth service; this only
// verifies.
func AuthMiddleware(cfg *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.Secret), nil
		}, jwt.WithIssuer(cfg.Issuer), jwt.WithExpirationRequired())

		if err != nil || !token.Valid {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		accountID := claims.AccountID
		if accountID == "" {
			accountID = claims.Subject
		}
		if accountID == "" {
			response.Unauthorized(c, "token has no account")
			c.Abort()
			return
		}

		c.Set(ContextKeyAccountID, accountID)
		c.Next()
	}
}
