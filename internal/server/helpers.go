package server

import (
	"context"
	"errors"
	"strings"

	"toolshelf/internal/middleware"
	"toolshelf/internal/models"
	"toolshelf/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination extracts limit and offset query parameters with the given
// default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{Limit: limit, Offset: offset}
}

// parseID extracts a route parameter by name as a positive uint. On failure
// it writes a 400 JSON response and returns errResponseWritten; callers
// should then return nil.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+strings.ToUpper(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// storeClaims records the session in locals and syncs the user ID into the
// request context for logging.
func storeClaims(c *fiber.Ctx, claims service.TokenClaims) {
	c.Locals("userID", claims.UserID)
	c.Locals("claims", claims)
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, claims.UserID)
	c.SetUserContext(ctx)
}

// currentUserID returns the authenticated user's ID, or zero for anonymous
// requests.
func currentUserID(c *fiber.Ctx) uint {
	if id, ok := c.Locals("userID").(uint); ok {
		return id
	}
	return 0
}

// currentClaims returns the session claims, or a zero value for anonymous
// requests.
func currentClaims(c *fiber.Ctx) service.TokenClaims {
	if claims, ok := c.Locals("claims").(service.TokenClaims); ok {
		return claims
	}
	return service.TokenClaims{}
}

// claimsFromRequest extracts and validates the bearer token.
func (s *Server) claimsFromRequest(c *fiber.Ctx) (service.TokenClaims, error) {
	authHeader := c.Get("Authorization")
	tokenString := ""
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			tokenString = parts[1]
		}
	}
	if tokenString == "" {
		return service.TokenClaims{}, models.NewUnauthorizedError("Authorization required")
	}
	return s.authService.ParseToken(tokenString)
}

// isAdminByUserID checks whether the given user has admin privileges.
func (s *Server) isAdminByUserID(ctx context.Context, userID uint) (bool, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("is_admin").First(&user, userID).Error; err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// requesterIsAdmin resolves the effective admin flag for a request; anonymous
// and unknown users are never admins.
func (s *Server) requesterIsAdmin(c *fiber.Ctx) bool {
	userID := currentUserID(c)
	if userID == 0 {
		return false
	}
	admin, err := s.isAdminByUserID(c.Context(), userID)
	if err != nil {
		return false
	}
	return admin
}

// respondServiceError maps a service error onto the response using its code.
func respondServiceError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusForError(err), err)
}
