package server

import (
	"strings"

	"toolshelf/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetTools handles GET /api/tools with filtering, sorting and pagination.
// Anonymous and regular users only ever see approved listings; admins may
// filter by status.
func (s *Server) GetTools(c *fiber.Ctx) error {
	p := parsePagination(c, service.DefaultPageSize)

	var categories []string
	if raw := c.Query("categories"); raw != "" {
		for _, category := range strings.Split(raw, ",") {
			if category = strings.TrimSpace(category); category != "" {
				categories = append(categories, category)
			}
		}
	}

	page, err := s.toolService.ListTools(c.Context(), service.ListToolsInput{
		Name:       c.Query("name"),
		Categories: categories,
		Pricing:    c.Query("pricing"),
		Status:     c.Query("status"),
		Sort:       c.Query("sort", "latest"),
		Limit:      p.Limit,
		Offset:     p.Offset,
		IsAdmin:    s.requesterIsAdmin(c),
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(toolPageResponse(page))
}

// GetTool handles GET /api/tools/:slug.
func (s *Server) GetTool(c *fiber.Ctx) error {
	slug := c.Params("slug")

	tool, err := s.toolService.GetToolBySlug(c.Context(), slug, currentUserID(c), s.requesterIsAdmin(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(toolResponse(tool))
}

// BookmarkTool handles PUT /api/tools/:id/bookmark.
func (s *Server) BookmarkTool(c *fiber.Ctx) error {
	toolID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.toolService.Bookmark(c.Context(), currentUserID(c), toolID); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UnbookmarkTool handles DELETE /api/tools/:id/bookmark.
func (s *Server) UnbookmarkTool(c *fiber.Ctx) error {
	toolID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.toolService.Unbookmark(c.Context(), currentUserID(c), toolID); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetCategories handles GET /api/categories: the categories in use across
// approved listings, with counts.
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.toolService.ListCategories(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"categories": categories})
}

// GetMyBookmarks handles GET /api/me/bookmarks.
func (s *Server) GetMyBookmarks(c *fiber.Ctx) error {
	p := parsePagination(c, service.DefaultPageSize)

	tools, err := s.toolService.ListBookmarks(c.Context(), currentUserID(c), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"tools": toolListResponse(tools)})
}

// GetMySubmissions handles GET /api/me/tools: the user's own submissions in
// every status.
func (s *Server) GetMySubmissions(c *fiber.Ctx) error {
	tools, err := s.toolService.ListMySubmissions(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"tools": toolListResponse(tools)})
}
