package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/foodcourt-api/middleware"
	"github.com/kendall-kelly/foodcourt-api/services"
)

var statusByCode = map[string]int{
	services.CodeUnauthorized:          http.StatusUnauthorized,
	services.CodeForbidden:             http.StatusForbidden,
	services.CodeNotFound:              http.StatusNotFound,
	services.CodeUserExists:            http.StatusConflict,
	services.CodeInvalidInput:          http.StatusBadRequest,
	services.CodeRestaurantUnavailable: http.StatusBadRequest,
	services.CodeBelowMinimumOrder:     http.StatusBadRequest,
	services.CodeInvalidTransition:     http.StatusBadRequest,
	services.CodeStatusConflict:        http.StatusConflict,
	services.CodeOrderLocked:           http.StatusConflict,
	services.CodeMissingSignature:      http.StatusBadRequest,
	services.CodeInvalidSignature:      http.StatusBadRequest,
	services.CodeGatewayError:          http.StatusInternalServerError,
	services.CodeInternalError:         http.StatusInternalServerError,
}

var errMissingIdentity = &services.Error{Code: services.CodeUnauthorized, Message: "Could not extract user information"}

// respondError writes a service error as {"error":{...}}. Internal causes
// are never exposed.
func respondError(c *gin.Context, err error) {
	serviceErr, ok := services.AsError(err)
	if !ok {
		serviceErr = &services.Error{Code: services.CodeInternalError, Message: "Internal server error"}
	}

	status, known := statusByCode[serviceErr.Code]
	if !known {
		status = http.StatusInternalServerError
	}

	body := gin.H{
		"code":    serviceErr.Code,
		"message": serviceErr.Message,
	}
	if serviceErr.Details != nil {
		body["details"] = serviceErr.Details
	}
	if serviceErr.Retryable {
		body["retryable"] = true
	}
	c.JSON(status, gin.H{"error": body})
}

// respondValidationError reports a request body that failed binding
func respondValidationError(c *gin.Context, message string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{
			"code":    services.CodeInvalidInput,
			"message": message,
			"details": err.Error(),
		},
	})
}

// currentActor returns the authenticated user loaded by middleware.LoadUser
func currentActor(c *gin.Context) (services.Actor, bool) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		respondError(c, errMissingIdentity)
		return services.Actor{}, false
	}
	return services.Actor{UserID: user.ID, Role: user.Role}, true
}
