package infrastructure

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"go-marketplace/pkg/logger"
	"go-marketplace/pkg/middleware"
)

// NewRouter builds the gin engine serving the engine API
func NewRouter(handler *HTTPHandler, log *logger.Logger, timeout time.Duration) *gin.Engine {
	router := gin.New()
	router.Use(middleware.TraceID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.CORS())
	if timeout > 0 {
		router.Use(middleware.Timeout(timeout))
	}

	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": log.Service()})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, "/swagger/index.html")
	})

	return router
}
