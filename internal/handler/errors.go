package handler

import (
	"net/http"
	"strconv"

	"tariff-service/internal/middleware"
	"tariff-service/internal/service"
	"tariff-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFor maps the service error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case service.IsValidation(err):
		return http.StatusBadRequest
	case service.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	c.JSON(status, response.Error(status, err.Error()))
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

// principal returns the caller set by the auth middleware. Write routes always run behind it.
func principal(c *gin.Context) service.Principal {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return service.Principal{Subject: "anonymous"}
	}
	return p
}

// softFlag reads ?soft=, falling back to def when absent or unparsable
func softFlag(c *gin.Context, def bool) bool {
	soft, err := strconv.ParseBool(c.DefaultQuery("soft", strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return soft
}
