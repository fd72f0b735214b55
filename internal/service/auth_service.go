package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"toolshelf/internal/config"
	"toolshelf/internal/email"
	"toolshelf/internal/middleware"
	"toolshelf/internal/models"
	"toolshelf/internal/repository"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const (
	// signInCodeTTL bounds how long a one-time code stays valid.
	signInCodeTTL = 10 * time.Minute
	// tokenTTL bounds how long an issued session token stays valid.
	tokenTTL = 7 * 24 * time.Hour
	// impersonationTTL keeps impersonated sessions short-lived.
	impersonationTTL = time.Hour

	googleIssuer = "https://accounts.google.com"
)

// TokenClaims is the decoded session token payload. ActorID is set only when
// an admin is impersonating another account; it always identifies the real
// person behind the request.
type TokenClaims struct {
	UserID  uint
	ActorID uint
	Email   string
}

// Impersonating reports whether the session belongs to an admin acting as
// another user.
func (c TokenClaims) Impersonating() bool {
	return c.ActorID != 0 && c.ActorID != c.UserID
}

// AuthService implements one-time-code and Google sign-in, session tokens
// and admin impersonation.
type AuthService struct {
	userRepo repository.UserRepository
	rdb      *redis.Client
	sender   email.Sender
	tmpl     *email.Templates
	cfg      *config.Config

	oauthCfg *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewAuthService creates a new auth service. Google sign-in stays disabled
// until ConfigureGoogle is called.
func NewAuthService(
	userRepo repository.UserRepository,
	rdb *redis.Client,
	sender email.Sender,
	tmpl *email.Templates,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		rdb:      rdb,
		sender:   sender,
		tmpl:     tmpl,
		cfg:      cfg,
	}
}

// ConfigureGoogle performs OIDC discovery against Google and enables the
// social sign-in flow. Call once at startup when client credentials are set.
func (s *AuthService) ConfigureGoogle(ctx context.Context) error {
	if s.cfg.GoogleClientID == "" || s.cfg.GoogleClientSecret == "" {
		middleware.Logger.Info("google sign-in disabled, client credentials not configured")
		return nil
	}

	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return fmt.Errorf("google oidc discovery: %w", err)
	}

	s.oauthCfg = &oauth2.Config{
		ClientID:     s.cfg.GoogleClientID,
		ClientSecret: s.cfg.GoogleClientSecret,
		RedirectURL:  s.cfg.BaseURL + "/auth/google/callback",
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	s.verifier = provider.Verifier(&oidc.Config{ClientID: s.cfg.GoogleClientID})
	middleware.Logger.Info("google sign-in enabled")
	return nil
}

// RequestCode generates a one-time sign-in code for the address and mails it.
// Only a SHA-256 digest of the code is stored, never the code itself.
func (s *AuthService) RequestCode(ctx context.Context, emailAddr string) error {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if _, err := mail.ParseAddress(emailAddr); err != nil {
		return models.NewValidationError("A valid email address is required")
	}
	if s.rdb == nil {
		return models.NewInternalError(errors.New("sign-in codes unavailable, redis not connected"))
	}

	code, err := generateCode()
	if err != nil {
		return models.NewInternalError(err)
	}

	digest := hashCode(code)
	if err := s.rdb.Set(ctx, codeKey(emailAddr), digest, signInCodeTTL).Err(); err != nil {
		return models.NewInternalError(fmt.Errorf("store sign-in code: %w", err))
	}

	if !s.sender.IsEnabled() {
		// Dev convenience: without a relay the code only exists in the log.
		middleware.Logger.InfoContext(ctx, "sign-in code issued",
			slog.String("email", emailAddr),
			slog.String("code", code),
		)
		return nil
	}

	subject, htmlBody, textBody := s.tmpl.SignInCode(code)
	if err := s.sender.Send([]string{emailAddr}, subject, htmlBody, textBody); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// VerifyCode redeems a one-time code, creating the account on first sign-in.
// Codes are single-use; a correct code is deleted before the token is issued.
func (s *AuthService) VerifyCode(ctx context.Context, emailAddr, code string) (string, *models.User, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	code = strings.TrimSpace(code)
	if emailAddr == "" || code == "" {
		return "", nil, models.NewValidationError("Email and code are required")
	}
	if s.rdb == nil {
		return "", nil, models.NewInternalError(errors.New("sign-in codes unavailable, redis not connected"))
	}

	stored, err := s.rdb.Get(ctx, codeKey(emailAddr)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil, models.NewUnauthorizedError("Invalid or expired code")
	}
	if err != nil {
		return "", nil, models.NewInternalError(err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(hashCode(code))) != 1 {
		return "", nil, models.NewUnauthorizedError("Invalid or expired code")
	}
	s.rdb.Del(ctx, codeKey(emailAddr))

	return s.signIn(ctx, emailAddr, "")
}

// GoogleAuthURL returns the redirect target that starts the Google flow.
func (s *AuthService) GoogleAuthURL(state string) (string, error) {
	if s.oauthCfg == nil {
		return "", models.NewValidationError("Google sign-in is not configured")
	}
	return s.oauthCfg.AuthCodeURL(state), nil
}

// HandleGoogleCallback exchanges the authorization code, verifies the ID
// token and signs the Google account in.
func (s *AuthService) HandleGoogleCallback(ctx context.Context, code string) (string, *models.User, error) {
	if s.oauthCfg == nil || s.verifier == nil {
		return "", nil, models.NewValidationError("Google sign-in is not configured")
	}

	oauthToken, err := s.oauthCfg.Exchange(ctx, code)
	if err != nil {
		return "", nil, models.NewUnauthorizedError("Google sign-in failed")
	}

	rawIDToken, ok := oauthToken.Extra("id_token").(string)
	if !ok {
		return "", nil, models.NewUnauthorizedError("Google sign-in failed")
	}

	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", nil, models.NewUnauthorizedError("Google sign-in failed")
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return "", nil, models.NewInternalError(err)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return "", nil, models.NewUnauthorizedError("Google account has no verified email")
	}

	return s.signIn(ctx, claims.Email, claims.Name)
}

// signIn upserts the account, applies the admin allow-list and issues a
// session token.
func (s *AuthService) signIn(ctx context.Context, emailAddr, displayName string) (string, *models.User, error) {
	user, err := s.userRepo.UpsertByEmail(ctx, emailAddr, displayName)
	if err != nil {
		return "", nil, err
	}

	if _, isAdmin := s.cfg.AdminEmailSet()[user.Email]; isAdmin && !user.IsAdmin {
		user.IsAdmin = true
		if err := s.userRepo.Update(ctx, user); err != nil {
			return "", nil, err
		}
	}

	token, err := s.issueToken(user.ID, 0, user.Email, tokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// GetUser returns the account for an authenticated session.
func (s *AuthService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewUnauthorizedError("Account no longer exists")
		}
		return nil, err
	}
	return user, nil
}

// Impersonate issues a short-lived token acting as the target user. The
// token keeps the admin's identity in the actor claim so the audit trail
// always names the real person.
func (s *AuthService) Impersonate(ctx context.Context, adminID, targetID uint) (string, *models.User, error) {
	if adminID == targetID {
		return "", nil, models.NewValidationError("You are already signed in as this user")
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, models.NewNotFoundError("user", targetID)
		}
		return "", nil, err
	}
	if target.IsAdmin {
		return "", nil, models.NewForbiddenError("Admins cannot be impersonated")
	}

	token, err := s.issueToken(target.ID, adminID, target.Email, impersonationTTL)
	if err != nil {
		return "", nil, err
	}

	middleware.Logger.InfoContext(ctx, "impersonation started",
		slog.Uint64("admin_id", uint64(adminID)),
		slog.Uint64("target_id", uint64(targetID)),
	)
	return token, target, nil
}

// StopImpersonation ends an impersonated session by re-issuing the admin's
// own token.
func (s *AuthService) StopImpersonation(ctx context.Context, claims TokenClaims) (string, *models.User, error) {
	if !claims.Impersonating() {
		return "", nil, models.NewValidationError("Not an impersonated session")
	}

	admin, err := s.userRepo.GetByID(ctx, claims.ActorID)
	if err != nil {
		return "", nil, err
	}

	token, err := s.issueToken(admin.ID, 0, admin.Email, tokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, admin, nil
}

// issueToken signs a session token. actorID is zero except for
// impersonation.
func (s *AuthService) issueToken(userID, actorID uint, emailAddr string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(userID), 10),
		"email": emailAddr,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	if actorID != 0 {
		claims["act"] = strconv.FormatUint(uint64(actorID), 10)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return signed, nil
}

// ParseToken validates a session token and decodes its claims.
func (s *AuthService) ParseToken(tokenStr string) (TokenClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return TokenClaims{}, models.NewUnauthorizedError("Invalid or expired token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, models.NewUnauthorizedError("Invalid or expired token")
	}

	out := TokenClaims{}
	if sub, ok := mapClaims["sub"].(string); ok {
		id, parseErr := strconv.ParseUint(sub, 10, 64)
		if parseErr != nil {
			return TokenClaims{}, models.NewUnauthorizedError("Invalid or expired token")
		}
		out.UserID = uint(id)
	}
	if out.UserID == 0 {
		return TokenClaims{}, models.NewUnauthorizedError("Invalid or expired token")
	}
	if act, ok := mapClaims["act"].(string); ok {
		if id, parseErr := strconv.ParseUint(act, 10, 64); parseErr == nil {
			out.ActorID = uint(id)
		}
	}
	if emailClaim, ok := mapClaims["email"].(string); ok {
		out.Email = emailClaim
	}
	return out, nil
}

func codeKey(emailAddr string) string {
	return "signin:code:" + emailAddr
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// generateCode returns a six digit numeric code with uniform distribution.
func generateCode() (string, error) {
	var buf [4]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return "", err
		}
		n := uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
		// Reject values above the largest multiple of 10^6 to avoid modulo bias.
		if n >= 4294000000 {
			continue
		}
		return fmt.Sprintf("%06d", n%1000000), nil
	}
}
