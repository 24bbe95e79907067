// frs profile-service
//
// Profile directory for loan officers, realtor partners and staff.
// Exposes a REST API and a gRPC ImportService used by the Gateway to:
//   - preview and process CSV imports (match by email, NMLS or fuzzy name)
//   - edit, deactivate, delete and merge profiles
//   - export active profiles as CSV
//
// Optionally watches IMPORT_DROP_DIR and imports files dropped there on a
// cron schedule. Publishes EVENT_IMPORT_COMPLETED, EVENT_PROFILE_IMPORTED
// and EVENT_PROFILES_MERGED to Redis.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"frs/profile-service/internal/app"
	"frs/profile-service/internal/config"
	"frs/profile-service/internal/grpcserver"
	"frs/profile-service/internal/httpapi"
	"frs/profile-service/internal/importer"
	"frs/profile-service/internal/scheduler"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[profile-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Stores, events, media ───────────────────────────────────────────────
	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("[profile-service] %v", err)
	}
	defer a.Close()

	// ── Drop-directory scheduler ────────────────────────────────────────────
	if cfg.ImportDropDir != "" {
		sched := scheduler.New(a.Importer, cfg.ImportDropDir, importer.Options{
			MatchMode: cfg.ImportMatchMode,
			Mode:      cfg.ImportMode,
		}, cfg.ImportIntervalHours)
		if err := sched.Start(ctx); err != nil {
			log.Fatalf("[profile-service] Scheduler: %v", err)
		}
		defer sched.Stop()
	}

	// ── gRPC server ──────────────────────────────────────────────────────────
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatalf("[profile-service] gRPC listen: %v", err)
	}
	gsrv := grpc.NewServer()
	grpcserver.NewServer(a.Importer, a.Profiles).Register(gsrv)

	go func() {
		log.Printf("[profile-service] gRPC listening on :%s", cfg.GRPCPort)
		if err := gsrv.Serve(lis); err != nil {
			log.Fatalf("[profile-service] gRPC server error: %v", err)
		}
	}()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	httpapi.NewHandler(a.Profiles, a.Importer).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	// Imports with image fetching can run long, hence the write timeout.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		log.Printf("[profile-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[profile-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[profile-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[profile-service] Shutdown error: %v", err)
	}
	gsrv.GracefulStop()
	cancel()
	log.Println("[profile-service] Stopped.")
}
