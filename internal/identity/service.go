// Package identity signs users up and in, issues tokens and announces
// authentication changes on a Bus.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/melihalgin1/CryptoVault/internal/config"
	"github.com/melihalgin1/CryptoVault/internal/models"
	"github.com/melihalgin1/CryptoVault/internal/repository"
	"github.com/melihalgin1/CryptoVault/lib/errs"
	"github.com/melihalgin1/CryptoVault/lib/hashcrypto"
	"gorm.io/gorm"
)

const minPasswordLen = 6

type Tokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type Claims struct {
	UserID uuid.UUID
	Name   string
}

type Service struct {
	users  repository.UsersRepository
	tokens repository.TokenRepository
	db     *gorm.DB
	mailer Mailer
	bus    Bus
	cfg    config.SecConfig
	log    *slog.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, mailer Mailer, bus Bus, cfg config.SecConfig, log *slog.Logger) *Service {
	return &Service{
		users:  repository.NewUsersRepository(db),
		tokens: repository.NewTokenRepository(db),
		db:     db,
		mailer: mailer,
		bus:    bus,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (*models.User, error) {
	const op = "identity.SignUp"

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLen {
		return nil, errs.ErrWeakPassword
	}

	hashedPassword, err := hashcrypto.HashPwd([]byte(password))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := &models.User{
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hashedPassword),
		LastAuthAt:   s.now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user signed up", "userID", user.ID)
	return user, nil
}

// SignIn checks credentials and issues tokens. A non-empty sessionID
// attaches the user to that dashboard session.
func (s *Service) SignIn(ctx context.Context, email, password, sessionID string) (*models.User, Tokens, error) {
	const op = "identity.SignIn"

	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, Tokens{}, errs.ErrInvalidCredentials
		}
		return nil, Tokens{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := hashcrypto.ComparePwd([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, Tokens{}, errs.ErrInvalidCredentials
	}

	if err := s.touchLastAuth(ctx, user); err != nil {
		return nil, Tokens{}, fmt.Errorf("%s: %w", op, err)
	}

	tokens, err := s.generateTokens(ctx, user, s.tokens)
	if err != nil {
		return nil, Tokens{}, fmt.Errorf("%s: %w", op, err)
	}

	s.attach(ctx, user, sessionID)
	return user, tokens, nil
}

// Restore re-attaches the owner of a still-valid access token to a
// dashboard session, the way a reload keeps a persisted login.
func (s *Service) Restore(ctx context.Context, accessToken, sessionID string) (*models.User, error) {
	claims, err := s.ParseAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrInvalidToken
		}
		return nil, fmt.Errorf("identity.Restore: %w", err)
	}

	s.attach(ctx, user, sessionID)
	return user, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	var tokens Tokens

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txTokens := repository.NewTokenRepository(tx)
		txUsers := repository.NewUsersRepository(tx)

		hashedToken := hashcrypto.HashToken(refreshToken)
		session, err := txTokens.GetByRefreshTokenHash(ctx, hashedToken)
		if err != nil {
			return errs.ErrInvalidToken
		}

		if s.now().After(session.ExpiresAt) {
			return errs.ErrInvalidToken
		}

		user, err := txUsers.GetUserByID(ctx, session.UserID)
		if err != nil {
			return fmt.Errorf("inconsistent state: session found but user not: %w", err)
		}

		if err := txTokens.DeleteByRefreshTokenHash(ctx, hashedToken); err != nil {
			return fmt.Errorf("failed to delete old session: %w", err)
		}

		tokens, err = s.generateTokens(ctx, user, txTokens)
		if err != nil {
			return fmt.Errorf("failed to generate new tokens: %w", err)
		}

		return nil
	})
	if err != nil {
		return Tokens{}, err
	}

	return tokens, nil
}

// SignOut revokes refreshToken and signs its owner out of every dashboard
// session. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	const op = "identity.SignOut"

	hashedToken := hashcrypto.HashToken(refreshToken)
	session, err := s.tokens.GetByRefreshTokenHash(ctx, hashedToken)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.tokens.DeleteByRefreshTokenHash(ctx, hashedToken); err != nil && !errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, Event{Type: EventSignedOut, UserID: session.UserID})
	return nil
}

// SignOutUser signs userID out of every dashboard session without touching
// refresh tokens.
func (s *Service) SignOutUser(ctx context.Context, userID uuid.UUID) {
	s.publish(ctx, Event{Type: EventSignedOut, UserID: userID})
}

// SendPasswordReset mails a reset token. Unknown addresses succeed silently
// so the endpoint cannot be used to discover accounts.
func (s *Service) SendPasswordReset(ctx context.Context, email string) error {
	const op = "identity.SendPasswordReset"

	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			s.log.Info("password reset for unknown email", "email", email)
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	token, err := hashcrypto.GenerateRandomString(32)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = s.users.UpdateUser(ctx, user.ID, map[string]any{
		"reset_token_hash": hashcrypto.HashToken(token),
		"reset_expires_at": s.now().Add(s.cfg.ResetTokenTTL),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ConfirmPasswordReset sets a new password and revokes every refresh token
// of the user.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	const op = "identity.ConfirmPasswordReset"

	if len(password) < minPasswordLen {
		return errs.ErrWeakPassword
	}

	user, err := s.users.GetUserByResetToken(ctx, hashcrypto.HashToken(token))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.ErrInvalidToken
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	hashedPassword, err := hashcrypto.HashPwd([]byte(password))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = s.users.UpdateUser(ctx, user.ID, map[string]any{
		"password_hash":    string(hashedPassword),
		"reset_token_hash": "",
		"reset_expires_at": time.Time{},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.tokens.DeleteAllUserSessions(ctx, user.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, Event{Type: EventSignedOut, UserID: user.ID})
	return nil
}

func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

func (s *Service) UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) error {
	const op = "identity.UpdateDisplayName"

	err := s.users.UpdateUser(ctx, userID, map[string]any{"display_name": strings.TrimSpace(displayName)})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Reauthenticate confirms the password and restarts the recent-login window.
func (s *Service) Reauthenticate(ctx context.Context, userID uuid.UUID, password string) error {
	const op = "identity.Reauthenticate"

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := hashcrypto.ComparePwd([]byte(user.PasswordHash), []byte(password)); err != nil {
		return errs.ErrInvalidCredentials
	}

	if err := s.touchLastAuth(ctx, user); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteUser removes the identity. It refuses with errs.ErrRequiresRecentLogin
// when the last authentication is older than the recent-login window.
func (s *Service) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	const op = "identity.DeleteUser"

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.now().Sub(user.LastAuthAt) > s.cfg.RecentLoginWindow {
		return errs.ErrRequiresRecentLogin
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewTokenRepository(tx).DeleteAllUserSessions(ctx, userID); err != nil {
			return err
		}
		return repository.NewUsersRepository(tx).DeleteUserByID(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user deleted", "userID", userID)
	s.publish(ctx, Event{Type: EventDeleted, UserID: userID})
	return nil
}

// NotifyDataCleared tells every session of userID to reload its document.
func (s *Service) NotifyDataCleared(ctx context.Context, userID uuid.UUID) {
	s.publish(ctx, Event{Type: EventDataCleared, UserID: userID})
}

func (s *Service) ParseAccessToken(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return Claims{}, errs.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errs.ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return Claims{}, errs.ErrInvalidToken
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Claims{}, errs.ErrInvalidToken
	}

	name, _ := claims["name"].(string)
	return Claims{UserID: userID, Name: name}, nil
}

// DeleteExpiredTokens is run periodically by the app.
func (s *Service) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpiredTokens(ctx)
}

func (s *Service) generateTokens(ctx context.Context, user *models.User, repo repository.TokenRepository) (Tokens, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTokenTTL)

	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"name": user.DisplayName,
		"exp":  expiresAt.Unix(),
		"iat":  now.Unix(),
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedAccessToken, err := accessToken.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := hashcrypto.GenerateRandomString(32)
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	session := &models.RefreshSession{
		UserID:    user.ID,
		TokenHash: hashcrypto.HashToken(refreshToken),
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}

	if err := repo.StoreRefreshToken(ctx, session); err != nil {
		return Tokens{}, fmt.Errorf("failed to store refresh token session: %w", err)
	}

	return Tokens{
		AccessToken:  signedAccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) touchLastAuth(ctx context.Context, user *models.User) error {
	user.LastAuthAt = s.now()
	return s.users.UpdateUser(ctx, user.ID, map[string]any{"last_auth_at": user.LastAuthAt})
}

func (s *Service) attach(ctx context.Context, user *models.User, sessionID string) {
	if sessionID == "" {
		return
	}
	s.publish(ctx, Event{
		Type:        EventSignedIn,
		UserID:      user.ID,
		SessionID:   sessionID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	})
}

func (s *Service) publish(ctx context.Context, event Event) {
	if err := s.bus.Publish(ctx, event); err != nil {
		s.log.Error("failed to publish identity event", "type", event.Type, "userID", event.UserID, "error", err)
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errs.ErrInvalidEmail
	}
	return email, nil
}
