package routes

import (
	"signature-form-api/controllers"
	"signature-form-api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers bundles the controllers the router mounts. Admin may be nil.
type Handlers struct {
	Agreement      *controllers.AgreementController
	Admin          *controllers.AdminSubmissionController
	Health         *controllers.HealthController
	AdminJWTSecret string
}

func SetupRoutes(router *gin.Engine, h Handlers) {
	// Form endpoint; non-POST methods reach the handler and get the method error.
	router.Any("/submit-agreement", h.Agreement.SubmitAgreement)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.Any("/agreements", h.Agreement.SubmitAgreement)
			public.GET("/health", h.Health.Health)
		}

		// Admin routes are only mounted when a signing secret is configured
		if h.Admin != nil && h.AdminJWTSecret != "" {
			admin := v1.Group("/admin")
			admin.Use(middleware.AdminAuthMiddleware(h.AdminJWTSecret))
			{
				submissions := admin.Group("/submissions")
				{
					submissions.GET("", h.Admin.ListSubmissions)
					submissions.GET("/:id", h.Admin.GetSubmission)
					submissions.GET("/:id/signature-files", h.Admin.GetSignatureFiles)
					submissions.GET("/:id/signature/:format", h.Admin.DownloadSignature)
					submissions.DELETE("/:id/signature-files", h.Admin.DeleteSignatureFiles)
				}

				admin.POST("/maintenance/sweep-orphans", h.Admin.SweepOrphans)
				admin.GET("/logs/:kind", h.Admin.GetEventLog)
			}
		}
	}
}
