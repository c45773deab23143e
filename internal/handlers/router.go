package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/survey-service/internal/services"
)

type HandlerManager struct {
	surveyHandler   *SurveyHandler
	responseHandler *ResponseHandler
	serviceManager  services.ServiceManager
}

func NewHandlerManager(serviceManager services.ServiceManager, logger *slog.Logger) *HandlerManager {
	return &HandlerManager{
		surveyHandler:   NewSurveyHandler(serviceManager.Survey(), logger),
		responseHandler: NewResponseHandler(serviceManager.Response(), logger),
		serviceManager:  serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(IdentityMiddleware())
	{
		surveys := v1.Group("/surveys")
		{
			surveys.POST("", hm.surveyHandler.CreateSurvey)
			surveys.GET("", hm.surveyHandler.ListSurveys)
			surveys.GET("/:id", hm.surveyHandler.GetSurvey)
			surveys.PUT("/:id", hm.surveyHandler.UpdateSurvey)
			surveys.DELETE("/:id", hm.surveyHandler.DeleteSurvey)

			surveys.PUT("/:id/status", hm.surveyHandler.UpdateSurveyStatus)
			surveys.POST("/:id/publish", hm.surveyHandler.PublishSurvey)
			surveys.POST("/:id/close", hm.surveyHandler.CloseSurvey)

			surveys.GET("/:id/analytics", hm.surveyHandler.GetSurveyAnalytics)
			surveys.POST("/:id/export", hm.surveyHandler.RequestExport)

			surveys.POST("/:id/responses", hm.responseHandler.SubmitResponse)
			surveys.GET("/:id/responses", hm.responseHandler.ListResponses)
		}
	}
}

// HealthCheck endpoint
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "survey-service",
	})
}
