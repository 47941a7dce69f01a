package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/herald-dns/herald/internal/api/models"
)

// DumpZone godoc
// @Summary Dump the authoritative zone
// @Description Returns every record the host currently claims, one line per record
// @Tags zone
// @Produce json
// @Success 200 {object} models.ZoneDumpResponse
// @Security ApiKeyAuth
// @Router /zone [get]
func (h *Handler) DumpZone(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.scope.Dump(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}

	resp := models.ZoneDumpResponse{Records: []string{}}
	for _, line := range strings.Split(buf.String(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			resp.Records = append(resp.Records, line)
		}
	}
	c.JSON(http.StatusOK, resp)
}

// VerifyZone godoc
// @Summary Re-verify all zone records
// @Description Sends every established record through a fresh probe cycle
// @Tags zone
// @Produce json
// @Success 200 {object} models.ZoneVerifyResponse
// @Security ApiKeyAuth
// @Router /zone/verify [post]
func (h *Handler) VerifyZone(c *gin.Context) {
	records := h.scope.Size()
	h.scope.VerifyAll()
	c.JSON(http.StatusOK, models.ZoneVerifyResponse{Records: records})
}

// Hostname godoc
// @Summary Advertised hostname
// @Tags zone
// @Produce json
// @Success 200 {object} models.HostnameResponse
// @Router /hostname [get]
func (h *Handler) Hostname(c *gin.Context) {
	c.JSON(http.StatusOK, models.HostnameResponse{Hostname: h.host.Current()})
}
