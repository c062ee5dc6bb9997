// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shareride/internal/config"
	"shareride/internal/http/handlers"
	"shareride/internal/http/middleware"
	"shareride/internal/metrics"
	"shareride/internal/modules/dispatch"
	"shareride/internal/modules/pool"
	"shareride/internal/modules/ride"
)

func NewRouter(
	rideService *ride.Service,
	poolService *pool.Service,
	dispatchService *dispatch.Service,
	driverStore *dispatch.Store,
	engineCfg config.EngineConfig,
	collector *metrics.Collector,
) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.Logging(), middleware.Recovery())

	rideHandler := handlers.NewRideHandler(rideService)
	router.POST("/api/rides", rideHandler.Create)
	router.GET("/api/rides/:id", rideHandler.Get)
	router.POST("/api/rides/:id/start", rideHandler.Start)
	router.POST("/api/rides/:id/complete", rideHandler.Complete)
	router.POST("/api/rides/:id/cancel", rideHandler.Cancel)

	dispatchHandler := handlers.NewDispatchHandler(rideService, dispatchService, driverStore, engineCfg)
	router.POST("/api/rides/:id/dispatch", dispatchHandler.Dispatch)
	router.GET("/api/rides/:id/drivers", dispatchHandler.Options)

	poolHandler := handlers.NewPoolHandler(rideService, poolService, driverStore)
	router.POST("/api/pools/search", poolHandler.Search)
	router.POST("/api/rides/:id/join", poolHandler.RequestJoin)
	router.POST("/api/pools/joins/:id/accept", poolHandler.AcceptJoin)
	router.POST("/api/pools/joins/:id/reject", poolHandler.RejectJoin)

	driverHandler := handlers.NewDriverHandler(driverStore)
	router.PUT("/api/drivers/:id/location", driverHandler.Update)
	router.DELETE("/api/drivers/:id", driverHandler.Remove)

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/metrics", gin.WrapH(collector.Handler()))

	return router
}
