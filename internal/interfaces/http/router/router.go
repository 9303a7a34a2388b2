package router

import (
	"github.com/gin-gonic/gin"

	"github.com/medpractice/backend/internal/infrastructure/auth"
	"github.com/medpractice/backend/internal/interfaces/http/handler"
	"github.com/medpractice/backend/internal/interfaces/http/middleware"
)

// Config holds the handlers and services the router wires together
type Config struct {
	JWTService      *auth.JWTService
	DocumentHandler *handler.DocumentHandler
	PatientHandler  *handler.PatientHandler
	SystemHandler   *handler.SystemHandler
}

// Setup registers all routes on the engine.
//
// The convert route runs behind the optional auth middleware: its
// precondition order checks the document's state before the caller's
// identity, so the request must reach the service even when anonymous.
func Setup(engine *gin.Engine, cfg Config) {
	// Liveness/readiness outside the API group, no auth
	engine.GET("/health", cfg.SystemHandler.Health)
	engine.GET("/ready", cfg.SystemHandler.Ready)

	api := engine.Group("/api/v1")

	system := api.Group("/system")
	{
		system.GET("/info", cfg.SystemHandler.GetSystemInfo)
	}

	required := middleware.JWTAuthMiddleware(cfg.JWTService)
	optional := middleware.OptionalJWTAuth(cfg.JWTService)

	billing := api.Group("/billing")
	{
		documents := billing.Group("/documents")
		documents.POST("", required, cfg.DocumentHandler.Create)
		documents.GET("", required, cfg.DocumentHandler.List)
		documents.GET("/:id", required, cfg.DocumentHandler.Get)
		documents.POST("/:id/convert", optional, cfg.DocumentHandler.Convert)
		documents.POST("/:id/send-to-sdi", required, cfg.DocumentHandler.SendToSDI)
		documents.PATCH("/:id/status", required, cfg.DocumentHandler.UpdateStatus)
	}

	patients := api.Group("/patients")
	{
		patients.GET("", required, cfg.PatientHandler.Lookup)
		patients.GET("/:id", required, cfg.PatientHandler.Get)
	}
}
