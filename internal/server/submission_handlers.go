package server

import (
	"toolshelf/internal/models"
	"toolshelf/internal/service"
	"toolshelf/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// IntakeTool handles POST /api/tools/intake: validates the submission form
// and returns presigned upload URLs for the declared images. Nothing is
// persisted until SaveTool.
func (s *Server) IntakeTool(c *fiber.Ctx) error {
	var in validation.SubmissionInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.submissionService.Intake(c.Context(), currentUserID(c), s.requesterIsAdmin(c), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// SaveTool handles POST /api/tools: persists a new submission or an edit,
// referencing the storage keys the client uploaded to after intake.
func (s *Server) SaveTool(c *fiber.Ctx) error {
	var in service.SaveToolInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	claims := currentClaims(c)
	tool, err := s.submissionService.SaveTool(c.Context(), claims.UserID, s.requesterIsAdmin(c), in)
	if err != nil {
		return respondServiceError(c, err)
	}

	status := fiber.StatusOK
	if in.ToolID == 0 {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(toolResponse(tool))
}
