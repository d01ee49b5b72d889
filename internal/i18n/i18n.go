// Package i18n holds the user-facing messages the service produces.
package i18n

import (
	"errors"

	"github.com/melihalgin1/CryptoVault/lib/errs"
)

type Lang string

const (
	EN Lang = "en"
	TR Lang = "tr"
)

const Default = EN

func Parse(raw string) (Lang, bool) {
	switch Lang(raw) {
	case EN, TR:
		return Lang(raw), true
	}
	return Default, false
}

type Key string

const (
	RateLimited        Key = "rateLimited"
	FetchFailed        Key = "fetchFailed"
	LoadFailed         Key = "loadFailed"
	SignInRequired     Key = "signInRequired"
	InvalidCredentials Key = "invalidCredentials"
	InvalidToken       Key = "invalidToken"
	InvalidEmail       Key = "invalidEmail"
	WeakPassword       Key = "weakPassword"
	EmailTaken         Key = "emailTaken"
	ReauthCancelled    Key = "reauthCancelled"
	RecentLogin        Key = "recentLogin"
	Busy               Key = "busy"
	NotFound           Key = "notFound"
	BadRequest         Key = "badRequest"
	ResetSent          Key = "resetSent"
	AccountDeleted     Key = "accountDeleted"
	Internal           Key = "internal"
)

var messages = map[Lang]map[Key]string{
	EN: {
		RateLimited:        "API limit reached. Please wait a minute and retry.",
		FetchFailed:        "Could not load prices. Please retry.",
		LoadFailed:         "Could not load your portfolio. Showing defaults until it loads.",
		SignInRequired:     "Sign in to see coin details.",
		InvalidCredentials: "Wrong email or password.",
		InvalidToken:       "Your session has expired. Please sign in again.",
		InvalidEmail:       "Enter a valid email address.",
		WeakPassword:       "Password must be at least 6 characters.",
		EmailTaken:         "An account with this email already exists.",
		ReauthCancelled:    "Re-authentication was cancelled. Please try again and confirm your password to delete your account.",
		RecentLogin:        "Please sign in again to continue.",
		Busy:               "Please wait, the previous action is still running.",
		NotFound:           "Not found.",
		BadRequest:         "Invalid request.",
		ResetSent:          "Password reset email sent. Check your inbox.",
		AccountDeleted:     "Your account has been deleted.",
		Internal:           "Something went wrong. Please try again.",
	},
	TR: {
		RateLimited:        "API limiti aşıldı. Lütfen bir dakika bekleyip tekrar deneyin.",
		FetchFailed:        "Fiyatlar yüklenemedi. Lütfen tekrar deneyin.",
		LoadFailed:         "Portföyünüz yüklenemedi. Yüklenene kadar varsayılanlar gösteriliyor.",
		SignInRequired:     "Coin detaylarını görmek için giriş yapın.",
		InvalidCredentials: "E-posta veya şifre hatalı.",
		InvalidToken:       "Oturumunuzun süresi doldu. Lütfen tekrar giriş yapın.",
		InvalidEmail:       "Geçerli bir e-posta adresi girin.",
		WeakPassword:       "Şifre en az 6 karakter olmalıdır.",
		EmailTaken:         "Bu e-posta ile kayıtlı bir hesap zaten var.",
		ReauthCancelled:    "Kimlik doğrulama iptal edildi. Hesabınızı silmek için tekrar deneyip şifrenizi onaylayın.",
		RecentLogin:        "Devam etmek için lütfen tekrar giriş yapın.",
		Busy:               "Lütfen bekleyin, önceki işlem hâlâ sürüyor.",
		NotFound:           "Bulunamadı.",
		BadRequest:         "Geçersiz istek.",
		ResetSent:          "Şifre sıfırlama e-postası gönderildi. Gelen kutunuzu kontrol edin.",
		AccountDeleted:     "Hesabınız silindi.",
		Internal:           "Bir şeyler ters gitti. Lütfen tekrar deneyin.",
	},
}

func T(lang Lang, key Key) string {
	if msg, ok := messages[lang][key]; ok {
		return msg
	}
	return messages[Default][key]
}

var errorKeys = []struct {
	err error
	key Key
}{
	{errs.ErrRateLimited, RateLimited},
	{errs.ErrFetchFailed, FetchFailed},
	{errs.ErrSignInRequired, SignInRequired},
	{errs.ErrInvalidCredentials, InvalidCredentials},
	{errs.ErrInvalidToken, InvalidToken},
	{errs.ErrInvalidEmail, InvalidEmail},
	{errs.ErrWeakPassword, WeakPassword},
	{errs.ErrAlreadyExists, EmailTaken},
	{errs.ErrReauthCancelled, ReauthCancelled},
	{errs.ErrRequiresRecentLogin, RecentLogin},
	{errs.ErrBusy, Busy},
	{errs.ErrNotFound, NotFound},
}

func ErrorKey(err error) Key {
	for _, e := range errorKeys {
		if errors.Is(err, e.err) {
			return e.key
		}
	}
	return Internal
}

// Error localises err; unknown errors get a generic message.
func Error(lang Lang, err error) string {
	return T(lang, ErrorKey(err))
}
