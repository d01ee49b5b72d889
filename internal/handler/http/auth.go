package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/melihalgin1/CryptoVault/internal/handler/middleware"
	"github.com/melihalgin1/CryptoVault/internal/i18n"
	"github.com/melihalgin1/CryptoVault/internal/identity"
	"github.com/melihalgin1/CryptoVault/internal/models"
)

type signUpRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type resetRequest struct {
	Email string `json:"email" binding:"required"`
}

type confirmResetRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	User   models.UserView `json:"user"`
	Tokens identity.Tokens `json:"tokens"`
}

func userView(user *models.User) models.UserView {
	return models.UserView{
		ID:          user.ID.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

func (h *Handler) setRefreshCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, token, maxAge, "/api/v1/auth", "", h.cfg.CookieSecure, true)
}

// signUp creates the account and signs it into the calling dashboard
// session when the request carries one.
func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}

	if _, err := h.identity.SignUp(c.Request.Context(), req.Email, req.Password, req.DisplayName); err != nil {
		h.writeError(c, err)
		return
	}

	user, tokens, err := h.identity.SignIn(c.Request.Context(), req.Email, req.Password, h.sessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.setRefreshCookie(c, tokens.RefreshToken, 0)
	c.JSON(http.StatusCreated, authResponse{User: userView(user), Tokens: tokens})
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}

	user, tokens, err := h.identity.SignIn(c.Request.Context(), req.Email, req.Password, h.sessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.setRefreshCookie(c, tokens.RefreshToken, 0)
	c.JSON(http.StatusOK, authResponse{User: userView(user), Tokens: tokens})
}

// refreshToken reads the token from the body, falling back to the cookie.
func (h *Handler) refreshToken(c *gin.Context) string {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	token, _ := c.Cookie(refreshCookie)
	return token
}

func (h *Handler) refresh(c *gin.Context) {
	token := h.refreshToken(c)
	if token == "" {
		h.badRequest(c)
		return
	}

	tokens, err := h.identity.Refresh(c.Request.Context(), token)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.setRefreshCookie(c, tokens.RefreshToken, 0)
	c.JSON(http.StatusOK, tokens)
}

// signOut revokes the refresh token and signs the user out everywhere. The
// calling session, if any, is reset even when the token is unknown.
func (h *Handler) signOut(c *gin.Context) {
	ctrl, hasSession := middleware.Session(c)

	token := h.refreshToken(c)
	switch {
	case token != "":
		if err := h.identity.SignOut(c.Request.Context(), token); err != nil {
			h.writeError(c, err)
			return
		}
	case hasSession:
		if userID, signedIn := ctrl.UserID(); signedIn {
			h.identity.SignOutUser(c.Request.Context(), userID)
		}
	}

	h.setRefreshCookie(c, "", -1)
	if !hasSession {
		c.Status(http.StatusNoContent)
		return
	}
	ctrl.SignOut()
	c.JSON(http.StatusOK, ctrl.View())
}

func (h *Handler) sendPasswordReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}

	if err := h.identity.SendPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.writeError(c, err)
		return
	}

	lang := middleware.Lang(c, h.cfg.LangCookieName)
	c.JSON(http.StatusOK, gin.H{"message": i18n.T(lang, i18n.ResetSent)})
}

func (h *Handler) confirmPasswordReset(c *gin.Context) {
	var req confirmResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c)
		return
	}

	if err := h.identity.ConfirmPasswordReset(c.Request.Context(), req.Token, req.Password); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// restore attaches the bearer of a valid access token to the calling
// dashboard session.
func (h *Handler) restore(c *gin.Context) {
	token, err := middleware.BearerToken(c)
	if err != nil {
		lang := middleware.Lang(c, h.cfg.LangCookieName)
		c.JSON(http.StatusUnauthorized, gin.H{"error": i18n.T(lang, i18n.InvalidToken)})
		return
	}

	user, err := h.identity.Restore(c.Request.Context(), token, h.sessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userView(user)})
}
