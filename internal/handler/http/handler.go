package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorilla_ws "github.com/gorilla/websocket"
	"github.com/melihalgin1/CryptoVault/internal/account"
	"github.com/melihalgin1/CryptoVault/internal/config"
	"github.com/melihalgin1/CryptoVault/internal/handler/middleware"
	"github.com/melihalgin1/CryptoVault/internal/i18n"
	"github.com/melihalgin1/CryptoVault/internal/identity"
	"github.com/melihalgin1/CryptoVault/internal/models"
	"github.com/melihalgin1/CryptoVault/internal/session"
	"github.com/melihalgin1/CryptoVault/internal/websocket"
	"github.com/melihalgin1/CryptoVault/lib/errs"
)

const refreshCookie = "refreshToken"

type IdentityService interface {
	SignUp(ctx context.Context, email, password, displayName string) (*models.User, error)
	SignIn(ctx context.Context, email, password, sessionID string) (*models.User, identity.Tokens, error)
	Restore(ctx context.Context, accessToken, sessionID string) (*models.User, error)
	Refresh(ctx context.Context, refreshToken string) (identity.Tokens, error)
	SignOut(ctx context.Context, refreshToken string) error
	SignOutUser(ctx context.Context, userID uuid.UUID)
	SendPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, password string) error
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) error
	Reauthenticate(ctx context.Context, userID uuid.UUID, password string) error
}

type AccountManager interface {
	ClearData(ctx context.Context, userID uuid.UUID) error
	DeleteAccount(ctx context.Context, userID uuid.UUID, reauth account.Reauth) error
}

type Handler struct {
	identity  IdentityService
	accounts  AccountManager
	hub       *session.Hub
	wsManager *websocket.Manager
	log       *slog.Logger
	jwtSecret string
	cfg       config.SessionConfig
	upgrader  gorilla_ws.Upgrader
}

func NewHandler(identity IdentityService, accounts AccountManager, hub *session.Hub, wsManager *websocket.Manager, log *slog.Logger, jwtSecret string, cfg config.SessionConfig) *Handler {
	return &Handler{
		identity:  identity,
		accounts:  accounts,
		hub:       hub,
		wsManager: wsManager,
		log:       log,
		jwtSecret: jwtSecret,
		cfg:       cfg,
		upgrader: gorilla_ws.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth", middleware.OptionalSession(h.hub, h.cfg))
		{
			auth.POST("/signup", h.signUp)
			auth.POST("/signin", h.signIn)
			auth.POST("/refresh", h.refresh)
			auth.POST("/signout", h.signOut)
			auth.POST("/password-reset", h.sendPasswordReset)
			auth.POST("/password-reset/confirm", h.confirmPasswordReset)
			auth.POST("/restore", h.restore)
		}

		dashboard := api.Group("/dashboard", middleware.SessionMiddleware(h.hub, h.cfg, h.log))
		{
			dashboard.GET("", h.getView)
			dashboard.POST("/coins", h.addCoin)
			dashboard.DELETE("/coins/:id", h.removeCoin)
			dashboard.PUT("/holdings/:id", h.setHolding)
			dashboard.PUT("/currency", h.setCurrency)
			dashboard.PUT("/language", h.setLanguage)
			dashboard.POST("/prices/retry", h.retryPrices)
			dashboard.POST("/detail/:id", h.openDetail)
			dashboard.DELETE("/detail", h.closeDetail)
			dashboard.POST("/account-screen", h.openAccount)
			dashboard.DELETE("/account-screen", h.closeAccount)
			dashboard.POST("/reload", h.reload)
			dashboard.GET("/ws", h.wsConnect)
		}

		acc := api.Group("/account", middleware.AuthMiddleware(h.jwtSecret, h.cfg.LangCookieName, h.log))
		{
			acc.GET("", h.getAccount)
			acc.PATCH("", h.updateAccount)
			acc.POST("/clear", h.clearData)
			acc.DELETE("", h.deleteAccount)
		}
	}
}

// writeError maps err to a status code and a localised message. Unexpected
// errors are logged; the session always survives.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": i18n.Error(middleware.Lang(c, h.cfg.LangCookieName), err)})
}

func (h *Handler) badRequest(c *gin.Context) {
	lang := middleware.Lang(c, h.cfg.LangCookieName)
	c.JSON(http.StatusBadRequest, gin.H{"error": i18n.T(lang, i18n.BadRequest)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errs.ErrInvalidCredentials), errors.Is(err, errs.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrSignInRequired):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrRequiresRecentLogin):
		return http.StatusPreconditionRequired
	case errors.Is(err, errs.ErrInvalidEmail), errors.Is(err, errs.ErrWeakPassword), errors.Is(err, errs.ErrReauthCancelled):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errs.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func userFromContext(c *gin.Context) (uuid.UUID, bool) {
	userIDRaw, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	raw, ok := userIDRaw.(string)
	if !ok {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

func (h *Handler) controller(c *gin.Context) *session.Controller {
	ctrl, _ := middleware.Session(c)
	return ctrl
}

// sessionID names the dashboard session a sign-in attaches to; auth routes
// may run without one.
func (h *Handler) sessionID(c *gin.Context) string {
	if ctrl, ok := middleware.Session(c); ok {
		return ctrl.ID()
	}
	return ""
}
