package middlewares

import (
	"fmt"
	"net/http"
	"strings"

	"citycare-be/models"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ActorKey is the gin context key holding the authenticated models.Actor.
const ActorKey = "actor"

// AuthCookie is the cookie the auth service sets alongside the bearer token.
const AuthCookie = "auth_token"

// AuthMiddleware validates the caller's HS256 token and stores the canonical
// Actor in the context. Tokens issued before the userType claim existed
// carry "role" instead; that fallback is resolved here and nowhere else.
func AuthMiddleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No authorization token provided"})
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			logger.Debug("token validation failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token claims"})
			return
		}
		actor, err := actorFromClaims(claims)
		if err != nil {
			logger.Debug("token claims rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token claims"})
			return
		}

		c.Set(ActorKey, actor)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(AuthCookie); err == nil {
		return cookie
	}
	return ""
}

func actorFromClaims(claims jwt.MapClaims) (models.Actor, error) {
	rawID := firstString(claims, "userId", "user_id")
	if rawID == "" {
		return models.Actor{}, fmt.Errorf("missing user id claim")
	}
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return models.Actor{}, fmt.Errorf("malformed user id claim: %w", err)
	}
	if id.IsZero() {
		return models.Actor{}, fmt.Errorf("zero user id claim")
	}
	return models.Actor{ID: id, Role: models.ParseRole(firstString(claims, "userType", "role"))}, nil
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// CurrentActor returns the actor stored by AuthMiddleware.
func CurrentActor(c *gin.Context) (models.Actor, bool) {
	v, exists := c.Get(ActorKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}
