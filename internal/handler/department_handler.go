package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/repository"
)

type DepartmentService interface {
	Add(ctx context.Context, title string) (*model.Department, error)
	GetByID(ctx context.Context, id int64) (*model.Department, error)
	ListAll(ctx context.Context) ([]*model.Department, error)
	ListFiltered(ctx context.Context, filters model.DepartmentFilters, page repository.Page) ([]model.DepartmentSummary, int64, error)
	UpdateTitle(ctx context.Context, id int64, title string) (*model.Department, error)
	Delete(ctx context.Context, id int64) error
}

type DepartmentHandler struct {
	departments DepartmentService
}

func NewDepartmentHandler(departments DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{departments: departments}
}

func (h *DepartmentHandler) Create(c *gin.Context) {
	var req model.DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	dept, err := h.departments.Add(c.Request.Context(), req.Title)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dept)
}

func (h *DepartmentHandler) GetAll(c *gin.Context) {
	depts, err := h.departments.ListAll(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, depts)
}

// Handles GET /departments/filtered with title and officer/request count bounds.
func (h *DepartmentHandler) GetFiltered(c *gin.Context) {
	var filters model.DepartmentFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		badRequest(c, err.Error())
		return
	}
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}

	items, total, err := h.departments.ListFiltered(c.Request.Context(), filters, page)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(items, total))
}

func (h *DepartmentHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	dept, err := h.departments.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dept)
}

func (h *DepartmentHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	dept, err := h.departments.UpdateTitle(c.Request.Context(), id, req.Title)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dept)
}

func (h *DepartmentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.departments.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
