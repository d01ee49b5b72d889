package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/melihalgin1/CryptoVault/internal/handler/middleware"
	"github.com/melihalgin1/CryptoVault/internal/i18n"
	"github.com/melihalgin1/CryptoVault/lib/errs"
)

type updateAccountRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

func (h *Handler) getAccount(c *gin.Context) {
	userID, ok := userFromContext(c)
	if !ok {
		h.log.Error("handler: userID not found in context")
		h.writeError(c, errs.ErrInvalidToken)
		return
	}

	user, err := h.identity.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, userView(user))
}

func (h *Handler) updateAccount(c *gin.Context) {
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}

	userID, ok := userFromContext(c)
	if !ok {
		h.writeError(c, errs.ErrInvalidToken)
		return
	}

	if err := h.identity.UpdateDisplayName(c.Request.Context(), userID, req.DisplayName); err != nil {
		h.writeError(c, err)
		return
	}

	user, err := h.identity.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userView(user))
}

// clearData wipes the watchlist and holdings; open sessions reload.
func (h *Handler) clearData(c *gin.Context) {
	userID, ok := userFromContext(c)
	if !ok {
		h.writeError(c, errs.ErrInvalidToken)
		return
	}

	if err := h.accounts.ClearData(c.Request.Context(), userID); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// deleteAccount removes the account. The optional password answers the
// re-authentication challenge; without it a stale login counts as a
// cancelled challenge.
func (h *Handler) deleteAccount(c *gin.Context) {
	var req deleteAccountRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c)
			return
		}
	}

	userID, ok := userFromContext(c)
	if !ok {
		h.writeError(c, errs.ErrInvalidToken)
		return
	}

	reauth := func(ctx context.Context) error {
		if req.Password == "" {
			return errs.ErrReauthCancelled
		}
		return h.identity.Reauthenticate(ctx, userID, req.Password)
	}

	if err := h.accounts.DeleteAccount(c.Request.Context(), userID, reauth); err != nil {
		h.writeError(c, err)
		return
	}

	lang := middleware.Lang(c, h.cfg.LangCookieName)
	h.log.Info("account deleted via api", "userID", userID, "lang", lang)
	c.JSON(http.StatusOK, gin.H{"message": i18n.T(lang, i18n.AccountDeleted)})
}
