package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"appdist/internal/middleware"
	releaseservice "appdist/internal/services/release_service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ReleaseController covers explicit teardown of a release. Asset cleanup
// runs deferred; surviving releases are never renumbered.
type ReleaseController struct {
	releaseService *releaseservice.ReleaseService
}

func NewReleaseController(releaseService *releaseservice.ReleaseService) *ReleaseController {
	return &ReleaseController{releaseService: releaseService}
}

func (r *ReleaseController) RegisterRoutes(group *gin.RouterGroup) {
	releases := group.Group("/releases")
	releases.DELETE("/:id", middleware.AuthGuard(), r.Destroy)
}

func (r *ReleaseController) Destroy(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid release id"})
		return
	}

	if err := r.releaseService.Destroy(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "release not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "release deleted"})
}
