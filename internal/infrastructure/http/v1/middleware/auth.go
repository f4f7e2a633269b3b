package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eudyespinoza/MyPOS/internal/core/apperror"
	appctx "github.com/eudyespinoza/MyPOS/internal/core/context"
)

// TokenValidator validates a bearer token into an operator identity.
type TokenValidator interface {
	ValidateToken(tokenString string) (*appctx.OperatorContext, error)
}

// Auth middleware validates JWT tokens and populates the operator context.
// The session layer issuing the tokens lives outside this service; here the
// token is only verified and decoded.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		operator, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		ctx := appctx.WithOperator(c.Request.Context(), operator)
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", operator.UserID)
		c.Set("store_id", operator.StoreID)

		c.Next()
	}
}

// RequireAdmin allows only operators with the admin flag. Must run after
// Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !appctx.IsAdmin(c.Request.Context()) {
			_ = c.Error(apperror.NewForbidden("administrator role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
