// Command server wires the template hub process: configuration, storage,
// caches, services, HTTP transport, and graceful shutdown. Business logic
// lives in the internal service packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"templatehub/internal/audit"
	"templatehub/internal/cache"
	"templatehub/internal/jwttoken"
	"templatehub/internal/platform/config"
	"templatehub/internal/platform/database"
	"templatehub/internal/platform/httpserver"
	"templatehub/internal/platform/logger"
	"templatehub/internal/platform/metrics"
	"templatehub/internal/platform/middleware"
	templatedao "templatehub/internal/template/dao"
	templatehandler "templatehub/internal/template/handler"
	templateservice "templatehub/internal/template/service"
	templatestore "templatehub/internal/template/store"
	httptransport "templatehub/internal/transport/http"
	vendordao "templatehub/internal/vendormapping/dao"
	vendorhandler "templatehub/internal/vendormapping/handler"
	vendorservice "templatehub/internal/vendormapping/service"
	vendorstore "templatehub/internal/vendormapping/store"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres unavailable", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	m := metrics.New()

	templateDAO := templatedao.New(
		templatestore.NewPostgres(db, log),
		cache.Config{Name: "template", TTL: cfg.TemplateCache.TTL, MaxEntries: uint64(cfg.TemplateCache.MaxEntries)},
		m,
	)
	defer templateDAO.Stop()
	vendorDAO := vendordao.New(
		vendorstore.NewPostgres(db, log),
		cache.Config{Name: "vendor", TTL: cfg.VendorCache.TTL, MaxEntries: uint64(cfg.VendorCache.MaxEntries)},
		m,
	)
	defer vendorDAO.Stop()

	auditSink, closeSink, err := buildAuditSink(ctx, cfg.Audit, log)
	if err != nil {
		log.Error("audit sink unavailable", "error", err.Error())
		os.Exit(1)
	}
	defer closeSink()
	auditor := audit.NewPublisher(auditSink, log)

	templates := templateservice.NewService(templateDAO, auditor, m)
	vendors := vendorservice.NewService(vendorDAO, templates, auditor, m, log)

	var jwtValidator middleware.JWTValidator
	if cfg.JWTSigningKey != "" {
		jwtValidator = jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	} else {
		log.Warn("no JWT signing key configured, running with header-based identity")
	}

	pages := templatehandler.PageConfig{DefaultSize: cfg.DefaultPageSize, MaxSize: cfg.MaxPageSize}
	router := httptransport.NewRouter(
		httptransport.NewOpsHandler(log, db, templateDAO, vendorDAO),
		templatehandler.New(templates, vendors, log, m, jwtValidator, pages),
		vendorhandler.New(vendors, templates, log, m, jwtValidator,
			vendorhandler.PageConfig{DefaultSize: cfg.DefaultPageSize, MaxSize: cfg.MaxPageSize}),
	)

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting templatehub", "addr", cfg.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Error("server error", "error", err.Error())
		os.Exit(1)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
	log.Info("server stopped")
}

// buildAuditSink picks the Kafka sink when brokers are configured and the
// in-memory sink otherwise, so dev environments run without a broker.
func buildAuditSink(ctx context.Context, cfg config.AuditConfig, log *slog.Logger) (audit.Store, func(), error) {
	if len(cfg.Brokers) == 0 {
		log.Warn("no kafka brokers configured, audit events stay in-process")
		return audit.NewInMemoryStore(), func() {}, nil
	}
	sink, err := audit.NewKafkaSink(ctx, cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, nil, err
	}
	return sink, sink.Close, nil
}
