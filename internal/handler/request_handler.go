package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/repository"
)

type RequestService interface {
	Submit(ctx context.Context, data *model.SubmitRequest, citizenID int64) (*model.Request, error)
	GetByID(ctx context.Context, id int64) (*model.Request, error)
	ListAll(ctx context.Context) ([]*model.Request, error)
	ListFiltered(ctx context.Context, filters model.RequestFilters, page repository.Page) ([]*model.Request, int64, error)
	ListWithDetails(ctx context.Context, filters model.RequestFilters, page repository.Page) ([]model.RequestDetails, int64, error)
	ListForCitizen(ctx context.Context, citizenID int64, filters model.RequestFilters, page repository.Page) ([]*model.Request, int64, error)
	AssignToDepartment(ctx context.Context, requestID, departmentID int64) (*model.Request, error)
	UpdateStatus(ctx context.Context, requestID int64, status model.RequestStatus) (*model.Request, error)
}

// CitizenResolver maps an authenticated user to its citizen profile id.
type CitizenResolver interface {
	CitizenIDForUser(ctx context.Context, userID int64) (int64, error)
}

type RequestHandler struct {
	requests RequestService
	citizens CitizenResolver
}

func NewRequestHandler(requests RequestService, citizens CitizenResolver) *RequestHandler {
	return &RequestHandler{requests: requests, citizens: citizens}
}

// Handles POST /requests. The reporting citizen comes from the token.
func (h *RequestHandler) Submit(c *gin.Context) {
	var req model.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	citizenID, err := h.citizens.CitizenIDForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	created, err := h.requests.Submit(c.Request.Context(), &req, citizenID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *RequestHandler) GetAll(c *gin.Context) {
	reqs, err := h.requests.ListAll(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

func (h *RequestHandler) GetFiltered(c *gin.Context) {
	filters, page, ok := requestQuery(c)
	if !ok {
		return
	}

	items, total, err := h.requests.ListFiltered(c.Request.Context(), filters, page)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(items, total))
}

func (h *RequestHandler) GetDetails(c *gin.Context) {
	filters, page, ok := requestQuery(c)
	if !ok {
		return
	}

	items, total, err := h.requests.ListWithDetails(c.Request.Context(), filters, page)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(items, total))
}

// Handles GET /requests/mine for the authenticated citizen.
func (h *RequestHandler) GetMine(c *gin.Context) {
	filters, page, ok := requestQuery(c)
	if !ok {
		return
	}

	citizenID, err := h.citizens.CitizenIDForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	items, total, err := h.requests.ListForCitizen(c.Request.Context(), citizenID, filters, page)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(items, total))
}

func (h *RequestHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	req, err := h.requests.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *RequestHandler) Assign(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body model.AssignRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}

	req, err := h.requests.AssignToDepartment(c.Request.Context(), id, body.DepartmentID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body model.StatusUpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}

	req, err := h.requests.UpdateStatus(c.Request.Context(), id, body.Status)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func requestQuery(c *gin.Context) (model.RequestFilters, repository.Page, bool) {
	var filters model.RequestFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		badRequest(c, err.Error())
		return filters, repository.Page{}, false
	}
	page, ok := pageFromQuery(c)
	return filters, page, ok
}
