package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

type OfficerService interface {
	GetByUserID(ctx context.Context, userID int64) (*model.Officer, error)
	ListAll(ctx context.Context) ([]model.OfficerWithUser, error)
	AssignToDepartment(ctx context.Context, officerID, departmentID int64) (bool, error)
}

type CitizenService interface {
	GetByID(ctx context.Context, id int64) (*model.Citizen, error)
	GetByUserID(ctx context.Context, userID int64) (*model.Citizen, error)
	ListAll(ctx context.Context) ([]model.CitizenWithUser, error)
}

type AdminService interface {
	ListAll(ctx context.Context) ([]model.AdminWithUser, error)
}

// ProfileHandler serves the role profile listings: officers, citizens and admins.
type ProfileHandler struct {
	officers OfficerService
	citizens CitizenService
	admins   AdminService
}

func NewProfileHandler(officers OfficerService, citizens CitizenService, admins AdminService) *ProfileHandler {
	return &ProfileHandler{officers: officers, citizens: citizens, admins: admins}
}

func (h *ProfileHandler) GetOfficers(c *gin.Context) {
	officers, err := h.officers.ListAll(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, officers)
}

func (h *ProfileHandler) GetOfficerByUser(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	officer, err := h.officers.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, officer)
}

func (h *ProfileHandler) AssignOfficer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body model.OfficerAssignRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}

	found, err := h.officers.AssignToDepartment(c.Request.Context(), id, body.DepartmentID)
	if err != nil {
		RespondError(c, err)
		return
	}
	if !found {
		RespondError(c, model.NotFound(model.ResourceOfficer, id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Officer assigned successfully"})
}

func (h *ProfileHandler) GetCitizens(c *gin.Context) {
	citizens, err := h.citizens.ListAll(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, citizens)
}

func (h *ProfileHandler) GetCitizen(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	citizen, err := h.citizens.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, citizen)
}

func (h *ProfileHandler) GetCitizenByUser(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	citizen, err := h.citizens.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, citizen)
}

func (h *ProfileHandler) GetAdmins(c *gin.Context) {
	admins, err := h.admins.ListAll(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, admins)
}
