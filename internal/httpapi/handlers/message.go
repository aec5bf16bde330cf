package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/message-app/internal/auth"
	"github.com/suPer8Hu/message-app/internal/message"
)

type loginReq struct {
	User string `json:"user" form:"user"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	_ = c.ShouldBind(&req) // an empty or malformed body is an invalid user
	if req.User == "" {
		req.User = c.Query("user")
	}

	user, err := h.Svc.ValidateUser(req.User)
	if err != nil {
		fail(c, http.StatusBadRequest, 10002, err.Error())
		return
	}

	token, err := auth.SignSession(user, h.Cfg.JWTSecret, h.Cfg.SessionTTL)
	if err != nil {
		h.logger(c).Error("sign session failed", "user", user, "error", err)
		fail(c, http.StatusInternalServerError, 20003, "failed to sign session")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, int(h.Cfg.SessionTTL.Seconds()), "/", "", false, true)

	c.JSON(http.StatusOK, gin.H{
		"active_user": user,
		"message":     fmt.Sprintf("Logged in as %s", user),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"active_user": nil,
		"message":     "Logged out",
	})
}

func (h *Handler) UserMessages(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, 40101, "Usuário não está logado")
		return
	}

	msgs, err := h.Svc.ListMessages(c.Request.Context(), user)
	if err != nil {
		h.logger(c).Error("list messages failed", "user", user, "error", err)
		fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		return
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

type sendMessageReq struct {
	Text string `json:"text" form:"text"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, 40101, "Usuário não está logado")
		return
	}

	var req sendMessageReq
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	userMsg, botMsg, err := h.Svc.SendMessage(c.Request.Context(), user, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, message.ErrEmptyText), errors.Is(err, message.ErrInvalidUser):
			fail(c, http.StatusBadRequest, 10003, err.Error())
		default:
			h.logger(c).Error("send message failed", "user", user, "error", err)
			fail(c, http.StatusInternalServerError, 50001, "failed to send message")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_message": userMsg,
		"bot_message":  botMsg,
	})
}
