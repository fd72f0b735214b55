package server

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"toolshelf/internal/models"

	"github.com/gofiber/fiber/v2"
)

const stateCookie = "oauth_state"

// RequestSignInCode handles POST /auth/code: mails a one-time sign-in code.
// The response is identical whether or not the address has an account, so
// the endpoint cannot be used to probe for registered emails.
func (s *Server) RequestSignInCode(c *fiber.Ctx) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.authService.RequestCode(c.Context(), body.Email); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "If the address is valid, a sign-in code has been sent"})
}

// VerifySignInCode handles POST /auth/verify: redeems a one-time code for a
// session token, creating the account on first sign-in.
func (s *Server) VerifySignInCode(c *fiber.Ctx) error {
	var body struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	token, user, err := s.authService.VerifyCode(c.Context(), body.Email, body.Code)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"token": token, "user": user})
}

// GoogleLogin handles GET /auth/google: redirects to Google's consent page.
func (s *Server) GoogleLogin(c *fiber.Ctx) error {
	state := generateState()

	url, err := s.authService.GoogleAuthURL(state)
	if err != nil {
		return respondServiceError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return c.Redirect(url, fiber.StatusTemporaryRedirect)
}

// GoogleCallback handles GET /auth/google/callback: verifies the state
// cookie, exchanges the authorization code and signs the account in.
func (s *Server) GoogleCallback(c *fiber.Ctx) error {
	state := c.Query("state")
	if state == "" || state != c.Cookies(stateCookie) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid state parameter"))
	}
	c.ClearCookie(stateCookie)

	token, user, err := s.authService.HandleGoogleCallback(c.Context(), c.Query("code"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"token": token, "user": user})
}

// GetMe handles GET /api/me. For impersonated sessions the response names
// the admin actually driving the session.
func (s *Server) GetMe(c *fiber.Ctx) error {
	claims := currentClaims(c)

	user, err := s.authService.GetUser(c.Context(), claims.UserID)
	if err != nil {
		return respondServiceError(c, err)
	}

	resp := fiber.Map{"user": user}
	if claims.Impersonating() {
		actor, err := s.authService.GetUser(c.Context(), claims.ActorID)
		if err != nil {
			return respondServiceError(c, err)
		}
		resp["impersonated_by"] = actor
	}
	return c.JSON(resp)
}

// Impersonate handles POST /api/admin/impersonate/:id: issues a short-lived
// token acting as the target user while keeping the admin in the actor claim.
func (s *Server) Impersonate(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	token, target, err := s.authService.Impersonate(c.Context(), currentUserID(c), targetID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"token": token, "user": target})
}

// StopImpersonation handles POST /api/me/stop-impersonation: swaps the
// impersonated session back for the admin's own.
func (s *Server) StopImpersonation(c *fiber.Ctx) error {
	token, admin, err := s.authService.StopImpersonation(c.Context(), currentClaims(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"token": token, "user": admin})
}

// Logout handles POST /auth/logout. Sessions are stateless bearer tokens, so
// logout is client-side; the endpoint exists so clients have a uniform flow.
func (s *Server) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Logged out"})
}

func generateState() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
