package handler

import (
	"net/http"

	"campaign-escrow/internal/adapter/http/dto"
	"campaign-escrow/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// HealthCheck pings every dependency and returns 503 if any is down.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		deps := make(map[string]dto.DependencyStatus, len(checkers))
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = dto.DependencyStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = dto.DependencyStatus{Status: "healthy"}
			}
		}

		resp := dto.HealthResponse{Status: "healthy", Dependencies: deps}
		httpCode := http.StatusOK
		if !allHealthy {
			resp.Status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, resp)
	}
}
