package routes

import (
	controllers "appdist/internal/api/controllers"
	"appdist/internal/metrics"
	"appdist/internal/middleware"

	gin "github.com/gin-gonic/gin"
)

func SetupRouter(
	uploadController *controllers.UploadController,
	releaseController *controllers.ReleaseController,
	healthController *controllers.HealthController,
	prom *metrics.Prom,
) *gin.Engine {
	r := gin.Default()

	// Health Check
	healthController.RegisterRoutes(r.Group("/"))

	if prom != nil {
		r.GET("/metrics", gin.WrapH(prom.Handler()))
	}

	// API Group
	api := r.Group("/api")
	controllers.GetAuthController().RegisterRoutes(api)
	controllers.GetUserController().RegisterRoutes(api)

	// Uploads are addressable by channel key without a login; the create
	// path checks for an owner identity inside the service.
	api.Use(middleware.AuthOptional())
	uploadController.RegisterRoutes(api)
	releaseController.RegisterRoutes(api)

	return r
}
