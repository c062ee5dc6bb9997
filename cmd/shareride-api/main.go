// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shareride/internal/config"
	httptransport "shareride/internal/http"
	"shareride/internal/infra"
	"shareride/internal/maps"
	"shareride/internal/metrics"
	"shareride/internal/modules/dispatch"
	"shareride/internal/modules/pool"
	"shareride/internal/modules/ride"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	collector := metrics.NewCollector()

	estimator, err := maps.NewEstimator(cfg.Maps.APIKey, cfg.Maps.Timeout, collector)
	if err != nil {
		log.Fatalf("route estimator init: %v", err)
	}

	rideStore := ride.NewStore(dbPool)
	rideSvc := ride.NewService(rideStore, cfg.Engine.MaxPoolSize)

	poolSvc := pool.NewService(estimator, cfg.Engine, collector)

	driverStore := dispatch.NewStore(redisClient)
	dispatchSvc := dispatch.NewService(cfg.Engine, collector)

	handler := httptransport.NewRouter(rideSvc, poolSvc, dispatchSvc, driverStore, cfg.Engine, collector)
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("[API] listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
