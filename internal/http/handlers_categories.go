package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type categoryRequest struct {
	Name   string     `json:"name" binding:"required,min=2,max=50"`
	Budget core.Money `json:"amount"`
}

func bindCategory(c *gin.Context) (services.CategoryInput, bool) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return services.CategoryInput{}, false
	}
	return services.CategoryInput{Name: sanitizeInput(req.Name), Budget: req.Budget}, true
}

// categoryPatchRequest is the PUT body. Omitted fields keep their stored
// value.
type categoryPatchRequest struct {
	Name   *string     `json:"name" binding:"omitempty,min=2,max=50"`
	Budget *core.Money `json:"amount"`
}

func bindCategoryPatch(c *gin.Context) (services.CategoryPatch, bool) {
	var req categoryPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return services.CategoryPatch{}, false
	}
	patch := services.CategoryPatch{Budget: req.Budget}
	if req.Name != nil {
		name := sanitizeInput(*req.Name)
		patch.Name = &name
	}
	return patch, true
}

// handleListCategories serves GET /api/categories
func (s *Server) handleListCategories(c *gin.Context) {
	usage, err := s.categories.List(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if usage == nil {
		usage = []core.CategoryUsage{}
	}
	c.JSON(http.StatusOK, usage)
}

// handleCreateCategory serves POST /api/categories
func (s *Server) handleCreateCategory(c *gin.Context) {
	in, ok := bindCategory(c)
	if !ok {
		return
	}
	created, err := s.categories.Create(c.Request.Context(), identityFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// handleUpdateCategory serves PUT /api/categories/:id
func (s *Server) handleUpdateCategory(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	patch, ok := bindCategoryPatch(c)
	if !ok {
		return
	}
	updated, err := s.categories.Update(c.Request.Context(), identityFrom(c), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// handleDeleteCategory serves DELETE /api/categories/:id
func (s *Server) handleDeleteCategory(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.categories.Delete(c.Request.Context(), identityFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Category deleted successfully", nil)
}
