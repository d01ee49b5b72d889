package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/melihalgin1/CryptoVault/internal/config"
	"github.com/melihalgin1/CryptoVault/internal/i18n"
	"github.com/melihalgin1/CryptoVault/internal/session"
)

const (
	authorizationHeader = "Authorization"

	UserIDKey   = "userID"
	UserNameKey = "userName"
	SessionKey  = "session"
)

// langCookieMaxAge keeps the language choice for a year.
const langCookieMaxAge = 365 * 24 * 60 * 60

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader(authorizationHeader)
	if header == "" {
		return "", errors.New("auth header is empty")
	}

	headerParts := strings.Split(header, " ")
	if len(headerParts) != 2 || headerParts[0] != "Bearer" {
		return "", errors.New("invalid auth header format")
	}

	if len(headerParts[1]) == 0 {
		return "", errors.New("token is empty")
	}

	return headerParts[1], nil
}

func AuthMiddleware(jwtSecret, langCookie string, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := BearerToken(c)
		if err != nil {
			log.Warn("auth middleware: bad auth header", slog.Any("error", err))
			abort(c, http.StatusUnauthorized, i18n.InvalidToken, langCookie)
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			log.Warn("auth middleware: failed to parse token", slog.Any("error", err))
			abort(c, http.StatusUnauthorized, i18n.InvalidToken, langCookie)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			log.Warn("auth middleware: token is not valid or claims are corrupted")
			abort(c, http.StatusUnauthorized, i18n.InvalidToken, langCookie)
			return
		}

		userID, err := claims.GetSubject()
		if err != nil || userID == "" {
			log.Warn("auth middleware: 'sub' claim is missing or not a string")
			abort(c, http.StatusUnauthorized, i18n.InvalidToken, langCookie)
			return
		}

		userName, _ := claims["name"].(string)

		c.Set(UserIDKey, userID)
		c.Set(UserNameKey, userName)
		c.Next()
	}
}

// SessionMiddleware resolves the dashboard session from its cookie, opening
// a new guest session when the cookie is missing or expired.
func SessionMiddleware(hub *session.Hub, cfg config.SessionConfig, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl, ok := lookupSession(c, hub, cfg)
		if !ok {
			ctrl = hub.Create()
			if raw, err := c.Cookie(cfg.LangCookieName); err == nil {
				if lang, ok := i18n.Parse(raw); ok {
					ctrl.SetLanguage(lang)
				}
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.CookieName, ctrl.ID(), 0, "/", "", cfg.CookieSecure, true)
			log.Debug("opened dashboard session", "session", ctrl.ID())
		}

		ctrl.Touch()
		c.Set(SessionKey, ctrl)
		c.Next()
	}
}

// OptionalSession resolves an existing dashboard session but never opens
// one, so requests without a live cookie run without a session.
func OptionalSession(hub *session.Hub, cfg config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ctrl, ok := lookupSession(c, hub, cfg); ok {
			ctrl.Touch()
			c.Set(SessionKey, ctrl)
		}
		c.Next()
	}
}

func lookupSession(c *gin.Context, hub *session.Hub, cfg config.SessionConfig) (*session.Controller, bool) {
	id, err := c.Cookie(cfg.CookieName)
	if err != nil || id == "" {
		return nil, false
	}
	return hub.Get(id)
}

func Session(c *gin.Context) (*session.Controller, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil, false
	}
	ctrl, ok := v.(*session.Controller)
	return ctrl, ok
}

// SetLanguageCookie persists lang across dashboard sessions.
func SetLanguageCookie(c *gin.Context, cfg config.SessionConfig, lang i18n.Lang) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.LangCookieName, string(lang), langCookieMaxAge, "/", "", cfg.CookieSecure, false)
}

// Lang picks the language of the request: the session's choice, then the
// language cookie, then the default.
func Lang(c *gin.Context, cookieName string) i18n.Lang {
	if ctrl, ok := Session(c); ok {
		return ctrl.Language()
	}
	if raw, err := c.Cookie(cookieName); err == nil {
		lang, _ := i18n.Parse(raw)
		return lang
	}
	return i18n.Default
}

func abort(c *gin.Context, status int, key i18n.Key, langCookie string) {
	c.AbortWithStatusJSON(status, gin.H{"error": i18n.T(Lang(c, langCookie), key)})
}
