package user

import (
	"alpha-qms/auth"
	"alpha-qms/internal/config"
	"alpha-qms/internal/errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for users
type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// FormLogin represents login form data
type FormLogin struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// FormRegister represents registration form data
type FormRegister struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=administrator quality_manager approver reader auditor"`
}

// Register handles user provisioning by an administrator
func (h *Handler) Register(c *gin.Context) {
	var form FormRegister
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	_, role := actorFrom(c)

	u := &User{
		Username: form.Username,
		FullName: form.FullName,
		Email:    form.Email,
		Password: form.Password,
		Role:     Role(form.Role),
	}

	if err := h.service.Register(c.Request.Context(), role, u); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": u.ToSafeUser()})
}

// Login handles user login
func (h *Handler) Login(c *gin.Context) {
	var form FormLogin
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	u, err := h.service.Login(c.Request.Context(), form.Login, form.Password)
	if err != nil {
		c.Error(err)
		return
	}

	accessToken, err := auth.GenerateAccessToken(u.ID, u.TokenVersion)
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}
	refreshToken, err := auth.GenerateRefreshToken(u.ID, u.TokenVersion)
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}

	// Refresh token travels as an HttpOnly cookie only
	c.SetCookie(
		"refresh_token",
		refreshToken,
		7*24*3600,
		"/",
		"",
		config.AppConfig.Environment == "production",
		true,
	)

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
		"user":         u.ToSafeUser(),
	})
}

func (h *Handler) RefreshToken(c *gin.Context) {
	refreshToken, err := c.Cookie("refresh_token")
	if err != nil {
		c.Error(errors.Unauthorized("Missing refresh token", err))
		return
	}

	token, err := auth.VerifyJWT(refreshToken)
	if err != nil {
		c.Error(errors.Unauthorized("Invalid token or expired", err))
		return
	}

	userID, tokenVersion, err := auth.GetDataFromToken(token)
	if err != nil {
		c.Error(errors.Unauthorized("Invalid token", err))
		return
	}

	u, err := h.service.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		c.Error(errors.Unauthorized("User not found", err))
		return
	}

	if !u.IsActive || u.TokenVersion != tokenVersion {
		c.Error(errors.Unauthorized("Invalid token", nil))
		return
	}

	newAccessToken, err := auth.GenerateAccessToken(u.ID, u.TokenVersion)
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": newAccessToken,
	})
}

// Logout revokes outstanding tokens and clears the refresh cookie
func (h *Handler) Logout(c *gin.Context) {
	userID, _ := actorFrom(c)

	if err := h.service.IncreaseTokenVersion(c.Request.Context(), userID); err != nil {
		log.Printf("[WARN] failed to bump token version for user %d: %v", userID, err)
	}
	c.SetCookie("refresh_token", "", -1, "/", "", true, true)
	c.Status(http.StatusNoContent)
}

// GetProfile handles getting the current user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	userID, _ := actorFrom(c)

	u, err := h.service.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, u.ToSafeUser())
}

func (h *Handler) SearchUsers(c *gin.Context) {
	users, err := h.service.SearchUsers(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, users)
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=administrator quality_manager approver reader auditor"`
}

func (h *Handler) ChangeRole(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid user id", err))
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	_, role := actorFrom(c)

	u, err := h.service.ChangeRole(c.Request.Context(), role, id, Role(req.Role))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, u.ToSafeUser())
}

func (h *Handler) Deactivate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid user id", err))
		return
	}

	actorID, role := actorFrom(c)

	if err := h.service.DeactivateUser(c.Request.Context(), actorID, role, id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// actorFrom mirrors middleware.ActorFrom without importing it, the
// middleware package depends on this one
func actorFrom(c *gin.Context) (uint64, Role) {
	idVal, _ := c.Get("user_id")
	roleVal, _ := c.Get("user_role")

	id, _ := idVal.(uint64)
	role, _ := roleVal.(Role)
	return id, role
}
