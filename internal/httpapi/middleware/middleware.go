package middleware

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/suPer8Hu/message-app/internal/auth"
	"github.com/suPer8Hu/message-app/internal/observability"
)

const (
	RequestIDKey     = "request_id"
	RequestIDHeader  = "X-Request-ID"
	UserKey          = "active_user"
	unauthorizedText = "Usuário não está logado"
)

// RequestID propagates an incoming X-Request-ID or assigns a new ULID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(observability.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// Recovery turns a panic into a 500 with the usual error body.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	log = observability.OrDiscard(log)
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				observability.FromContext(c.Request.Context(), log).Error("panic recovered",
					"panic", rec, "path", c.Request.URL.Path, "stack", string(debug.Stack()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code": 50000,
					"Erro": "internal error",
				})
			}
		}()
		c.Next()
	}
}

// AuthRequired admits requests carrying a valid session cookie and stores
// the user under UserKey.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(auth.CookieName)
		if err != nil || token == "" {
			abortUnauthorized(c)
			return
		}
		user, err := auth.ParseSession(token, secret)
		if err != nil {
			abortUnauthorized(c)
			return
		}
		c.Set(UserKey, user)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": 40101,
		"Erro": unauthorizedText,
	})
}
