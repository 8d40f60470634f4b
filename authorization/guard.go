package authorization

import (
	"net/http"

	jwt "github.com/appleboy/gin-jwt/v2"
	"github.com/gin-gonic/gin"
)

// Guard wraps the JWT middleware with authorization helpers.
type Guard struct {
	jwt *jwt.GinJWTMiddleware
}

// Guard returns the module's shared guard instance.
func (m *Module) Guard() *Guard {
	if m == nil || m.jwtMiddleware == nil {
		return nil
	}
	return &Guard{jwt: m.jwtMiddleware}
}

// RequireAuthenticated rejects requests without a valid token.
func (g *Guard) RequireAuthenticated() gin.HandlerFunc {
	if g == nil || g.jwt == nil {
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		}
	}
	return g.jwt.MiddlewareFunc()
}

// Identify reports the identity carried by the request's token, if any.
// Unlike RequireAuthenticated it never rejects: anonymous and invalid-token
// requests simply return ok=false.
func (g *Guard) Identify(c *gin.Context) (AuthenticatedUser, bool) {
	if g == nil || g.jwt == nil {
		return AuthenticatedUser{}, false
	}

	claims, err := g.jwt.GetClaimsFromJWT(c)
	if err != nil || len(claims) == 0 {
		return AuthenticatedUser{}, false
	}

	user := AuthenticatedUser{
		ID:       extractUserID(claims),
		Username: extractStringClaim(claims, "username"),
		Email:    extractStringClaim(claims, "email"),
	}
	return user, user.ID != 0
}
