package middleware

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"uniconnect.app/campus/internal/entity"
	"uniconnect.app/campus/pkg/response"
)

// Claims carries the viewer profile issued by the identity provider.
type Claims struct {
	UserType      string `json:"user_type"`
	AcademicLevel string `json:"academic_level,omitempty"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	secret string
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: secret}
}

// NewToken signs a token for viewer. The identity service issues tokens in
// production; this is used by tooling and tests.
func NewToken(secret string, viewer entity.Viewer, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserType:      viewer.UserType,
		AcademicLevel: viewer.AcademicLevel,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   viewer.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {

		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Fallback to query parameter "token" (useful for WebSockets)
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authorization required", "kind": "Unauthorized"})
			c.Abort()
			return
		}
		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(m.secret), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid or expired token", "kind": "Unauthorized"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || claims.Subject == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token claims", "kind": "Unauthorized"})
			c.Abort()
			return
		}

		c.Set(response.ViewerKey, entity.Viewer{
			ID:            claims.Subject,
			UserType:      claims.UserType,
			AcademicLevel: claims.AcademicLevel,
		})
		c.Next()
	}
}

// RequireUserType rejects viewers whose user type is not listed.
func (m *AuthMiddleware) RequireUserType(userTypes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, err := response.GetViewer(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "user not authenticated", "kind": "Unauthorized"})
			c.Abort()
			return
		}

		if !slices.Contains(userTypes, viewer.UserType) {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "this action is not allowed for your account", "kind": "PermissionDenied"})
			c.Abort()
			return
		}

		c.Next()
	}
}
