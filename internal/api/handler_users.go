package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gardu-monitor-backend/internal/model"
	"gardu-monitor-backend/internal/mw"
)

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

// ListUsers handles GET /api/users.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListAdminUsers(c.Request.Context())
	if err != nil {
		storeError(c, err, "users")
		return
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser handles POST /api/users.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := model.AdminUser{
		Username: strings.TrimSpace(req.Username),
		Role:     req.Role,
	}
	if user.Role == "" {
		user.Role = "admin"
	}
	if err := h.store.CreateAdminUser(c.Request.Context(), &user, req.Password); err != nil {
		storeError(c, err, "user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// DeleteUser handles DELETE /api/users/:id. Admins cannot delete themselves.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if id == mw.UserID(c) {
		c.JSON(http.StatusConflict, gin.H{"error": "cannot delete the current user"})
		return
	}
	if err := h.store.DeleteAdminUser(c.Request.Context(), id); err != nil {
		storeError(c, err, "user")
		return
	}
	c.Status(http.StatusNoContent)
}
