package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/herald-dns/herald/internal/api/handlers"
	"github.com/herald-dns/herald/internal/api/middleware"
	"github.com/herald-dns/herald/internal/config"

	_ "github.com/herald-dns/herald/internal/api/docs" // swagger docs
)

// RegisterRoutes wires all endpoints onto the engine.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, cfg *config.Config) {
	// Swagger UI at /swagger/*
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")

	// Health and hostname are registered before the key check and stay open.
	api.GET("/health", h.Health)
	api.GET("/hostname", h.Hostname)

	// Optional API key protection for every route registered below.
	if cfg != nil && cfg.API.APIKey != "" {
		api.Use(middleware.RequireAPIKey(cfg.API.APIKey))
	}

	api.GET("/stats", h.Stats)

	api.GET("/services", h.ListServices)
	api.POST("/services", h.CreateService)
	api.GET("/services/:name", h.GetService)
	api.DELETE("/services/:name", h.DeleteService)

	api.GET("/zone", h.DumpZone)
	api.POST("/zone/verify", h.VerifyZone)
}
