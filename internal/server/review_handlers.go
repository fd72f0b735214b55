package server

import (
	"toolshelf/internal/models"
	"toolshelf/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPendingTools handles GET /api/admin/tools/pending: the review queue.
func (s *Server) GetPendingTools(c *fiber.Ctx) error {
	p := parsePagination(c, service.DefaultPageSize)

	tools, total, err := s.reviewService.ListPending(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"tools": toolListResponse(tools),
		"total": total,
	})
}

// ApproveTool handles POST /api/admin/tools/:id/approve.
func (s *Server) ApproveTool(c *fiber.Ctx) error {
	toolID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	tool, err := s.reviewService.Approve(c.Context(), currentUserID(c), toolID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(toolResponse(tool))
}

// RejectTool handles POST /api/admin/tools/:id/reject. The request body may
// carry a reviewer's reason; when given it is recorded in the audit trail and
// mailed to the submitter.
func (s *Server) RejectTool(c *fiber.Ctx) error {
	toolID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	tool, err := s.reviewService.Reject(c.Context(), currentUserID(c), toolID, body.Reason)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(toolResponse(tool))
}

// GetToolHistory handles GET /api/admin/tools/:id/history: the append-only
// audit trail of a listing.
func (s *Server) GetToolHistory(c *fiber.Ctx) error {
	toolID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	entries, err := s.toolService.GetToolHistory(c.Context(), toolID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"history": entries})
}
