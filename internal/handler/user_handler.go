package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/repository"
)

type UserService interface {
	SignUp(ctx context.Context, req *model.SignupRequest) (*model.User, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	ListAll(ctx context.Context) ([]*model.User, error)
	ListFiltered(ctx context.Context, filters model.UserFilters, page repository.Page) ([]*model.User, int64, error)
	UpdateFull(ctx context.Context, id int64, req *model.UserUpdateRequest) (*model.User, error)
	UpdatePatch(ctx context.Context, id int64, req *model.UserPatchRequest) (*model.User, error)
	UpdateRole(ctx context.Context, id int64, role model.Role) error
	DeleteUser(ctx context.Context, id int64) error
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

type UserHandler struct {
	users UserService
}

func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Handles POST /users/signup.
func (h *UserHandler) SignUp(c *gin.Context) {
	var req model.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.users.SignUp(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Handles POST /users/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.users.Login(c.Request.Context(), &req)
	if err != nil {
		// Do not reveal which half of the credentials was wrong.
		if model.IsNotFound(err) {
			err = model.UnauthorizedError{Msg: "invalid username or password"}
		}
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) GetAll(c *gin.Context) {
	users, err := h.users.ListAll(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) GetFiltered(c *gin.Context) {
	var filters model.UserFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		badRequest(c, err.Error())
		return
	}
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}

	users, total, err := h.users.ListFiltered(c.Request.Context(), filters, page)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(users, total))
}

func (h *UserHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Handles PUT /users/:id, the admin-only full update.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Empty() {
		badRequest(c, "nothing to update")
		return
	}

	user, err := h.users.UpdateFull(c.Request.Context(), id, &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Handles PATCH /users/:id. Users may only patch themselves.
func (h *UserHandler) Patch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if id != currentUserID(c) {
		RespondError(c, model.ForbiddenError{Msg: "users can only update their own account"})
		return
	}

	var req model.UserPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.users.UpdatePatch(c.Request.Context(), id, &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req model.RoleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.users.UpdateRole(c.Request.Context(), id, req.Role); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role updated successfully"})
}

// Handles DELETE /users/:id. Admins may delete anyone, other users only themselves.
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	claims, _ := currentClaims(c)
	if claims == nil || (claims.Role != model.RoleAdmin && id != currentUserID(c)) {
		RespondError(c, model.ForbiddenError{Msg: "not allowed to delete this user"})
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) CheckUsername(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		badRequest(c, "username is required")
		return
	}
	exists, err := h.users.UsernameExists(c.Request.Context(), username)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (h *UserHandler) CheckEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		badRequest(c, "email is required")
		return
	}
	exists, err := h.users.EmailExists(c.Request.Context(), email)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}
