package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ogurasousui/habilitation-registry/internal/adapters/http/handler"
	"github.com/ogurasousui/habilitation-registry/internal/adapters/repository/postgres"
	"github.com/ogurasousui/habilitation-registry/internal/core/bulkimport"
	"github.com/ogurasousui/habilitation-registry/internal/core/employee"
	"github.com/ogurasousui/habilitation-registry/internal/core/habilitation"
	"github.com/ogurasousui/habilitation-registry/internal/core/hierarchy"
	"github.com/ogurasousui/habilitation-registry/internal/platform/auth"
	"github.com/ogurasousui/habilitation-registry/internal/platform/config"
	pg "github.com/ogurasousui/habilitation-registry/internal/platform/db/postgres"
	"github.com/ogurasousui/habilitation-registry/internal/platform/server"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}

	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database pool")
	}
	defer dbPool.Close()

	txManager := pg.NewTransactionManager(dbPool)

	hierarchyRepo := postgres.NewHierarchyRepository(dbPool)
	employeeRepo := postgres.NewEmployeeRepository(dbPool)
	habilitationRepo := postgres.NewHabilitationRepository(dbPool)
	accountRepo := postgres.NewAccountRepository(dbPool)

	hierarchyStore := hierarchy.NewStore(hierarchyRepo, txManager)
	employeeRegistry := employee.NewRegistry(employeeRepo, hierarchyStore, nil, txManager)
	habilitationLedger := habilitation.NewLedger(habilitationRepo, nil, txManager)
	importer := bulkimport.NewReconciler(hierarchyStore, employeeRegistry, habilitationLedger, txManager)

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	authenticator := auth.NewAuthenticator(accountRepo, tokens, nil)

	router := handler.NewRouter(handler.RouterDeps{
		Employees:     handler.NewEmployeeHandler(employeeRegistry, hierarchyStore, habilitationLedger, nil, logger),
		Hierarchy:     handler.NewHierarchyHandler(hierarchyStore, logger),
		Habilitations: handler.NewHabilitationHandler(habilitationLedger, nil, logger),
		Importer:      handler.NewImportHandler(importer, logger),
		Auth:          handler.NewAuthHandler(authenticator, logger),
		Tokens:        tokens,
		Logger:        logger,
	})

	httpServer := server.New(cfg.Server.ListenAddr, router)

	logger.WithField("listen_addr", cfg.Server.ListenAddr).Info("http server listening")

	if err := httpServer.Run(ctx); err != nil {
		logger.WithError(err).Fatal("server stopped with error")
	}
}
