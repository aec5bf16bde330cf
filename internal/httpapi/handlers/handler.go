package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/message-app/internal/config"
	"github.com/suPer8Hu/message-app/internal/httpapi/middleware"
	"github.com/suPer8Hu/message-app/internal/message"
	"github.com/suPer8Hu/message-app/internal/observability"
)

type Handler struct {
	Cfg config.Config
	Svc *message.Service
	Log *slog.Logger
}

func NewHandler(cfg config.Config, svc *message.Service, log *slog.Logger) *Handler {
	return &Handler{Cfg: cfg, Svc: svc, Log: observability.OrDiscard(log)}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail writes the service's error body. Clients read the text from "Erro".
func fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code": code,
		"Erro": msg,
	})
}

func userFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(middleware.UserKey)
	if !ok {
		return "", false
	}
	user, ok := v.(string)
	return user, ok && user != ""
}

func (h *Handler) logger(c *gin.Context) *slog.Logger {
	return observability.FromContext(c.Request.Context(), h.Log)
}
