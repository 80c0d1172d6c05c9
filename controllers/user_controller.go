package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/foodcourt-api/config"
	"github.com/kendall-kelly/foodcourt-api/middleware"
	"github.com/kendall-kelly/foodcourt-api/models"
	"github.com/kendall-kelly/foodcourt-api/services"
)

// CreateUser handles POST /api/v1/users. It provisions the local profile
// for the token's identity; order endpoints reject identities without one.
func CreateUser(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, &services.Error{Code: services.CodeUnauthorized, Message: "Could not extract user ID from token"})
		return
	}
	accessToken, err := middleware.GetAccessToken(c)
	if err != nil {
		respondError(c, &services.Error{Code: services.CodeUnauthorized, Message: "Access token not found"})
		return
	}

	profile, err := services.GetIdentityProvider().GetUserInfo(c.Request.Context(), accessToken)
	if err != nil {
		respondError(c, &services.Error{Code: services.CodeInternalError, Message: "Failed to fetch user information from Auth0", Err: err})
		return
	}
	if profile.Email == "" || profile.Name == "" {
		respondError(c, &services.Error{Code: services.CodeInvalidInput, Message: "Name and email must be provided by Auth0"})
		return
	}

	// Roles are granted in Auth0; no claim means customer
	role := middleware.GetRoleClaim(c)
	if role == "" {
		role = models.RoleCustomer
	}

	user := models.User{
		Auth0ID: auth0ID,
		Name:    profile.Name,
		Email:   profile.Email,
		Role:    role,
	}
	if err := config.GetDB().WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			respondError(c, &services.Error{Code: services.CodeUserExists, Message: "A user with this Auth0 ID or email already exists"})
			return
		}
		respondError(c, &services.Error{Code: services.CodeInternalError, Message: "Failed to create user", Err: err})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// GetMyProfile handles GET /api/v1/users/me
func GetMyProfile(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		respondError(c, errMissingIdentity)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// isUniqueViolation matches both the postgres and sqlite driver messages
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
