package server

import (
	"toolshelf/internal/models"
	"toolshelf/internal/service"
)

// toolView is the wire form of a tool: the categories column is serialized
// in storage but a proper list on the API.
type toolView struct {
	*models.Tool
	Categories []string `json:"categories"`
}

func toolResponse(tool *models.Tool) toolView {
	return toolView{Tool: tool, Categories: tool.CategoryList()}
}

func toolListResponse(tools []*models.Tool) []toolView {
	out := make([]toolView, 0, len(tools))
	for _, tool := range tools {
		out = append(out, toolResponse(tool))
	}
	return out
}

type toolPageView struct {
	Tools  []toolView `json:"tools"`
	Total  int64      `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

func toolPageResponse(page *service.ToolPage) toolPageView {
	return toolPageView{
		Tools:  toolListResponse(page.Tools),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
}
