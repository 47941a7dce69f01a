// Package handlers implements the REST API endpoint handlers for herald.
//
// @title Herald Management API
// @version 1.0
// @description REST API for managing the DNS-SD services herald advertises on the link.
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8053
// @BasePath /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
package handlers

import (
	"log/slog"
	"time"

	"github.com/herald-dns/herald/internal/database"
	"github.com/herald-dns/herald/internal/dnssd"
	"github.com/herald-dns/herald/internal/host"
	"github.com/herald-dns/herald/internal/scope"
)

// Handler contains dependencies for API handlers. The scope serializes zone
// access internally, so handlers call it directly from gin's worker
// goroutines.
type Handler struct {
	logger    *slog.Logger
	startTime time.Time

	scope   *scope.Scope
	manager *dnssd.Manager
	host    *host.Host
	db      *database.DB
}

// New creates a Handler wired to the daemon's runtime components. db may be
// nil; runtime registrations are then not persisted.
func New(s *scope.Scope, m *dnssd.Manager, h *host.Host, db *database.DB, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		startTime: time.Now(),
		scope:     s,
		manager:   m,
		host:      h,
		db:        db,
	}
}
