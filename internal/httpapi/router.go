package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/message-app/internal/config"
	"github.com/suPer8Hu/message-app/internal/httpapi/handlers"
	"github.com/suPer8Hu/message-app/internal/httpapi/middleware"
	"github.com/suPer8Hu/message-app/internal/message"
)

func NewRouter(cfg config.Config, svc *message.Service, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery(log))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "Erro": "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"code": 40500, "Erro": "method not allowed"})
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(cfg, svc, log)

	r.GET("/ping", h.Ping)

	api := r.Group("/api/message")
	api.POST("/login/", h.Login)
	api.POST("/logout/", h.Logout)

	authGroup := api.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/user_messages/", h.UserMessages)
	authGroup.POST("/send_message/", h.SendMessage)
	return r
}
