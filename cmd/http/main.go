package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"disbursement-service/cmd/migration"
	"disbursement-service/internal/app/config"
	"disbursement-service/internal/app/delivery/http/controllers"
	"disbursement-service/internal/app/delivery/http/middlewares"
	"disbursement-service/internal/app/delivery/http/routers"
	"disbursement-service/internal/app/drivers/database"
	"disbursement-service/internal/app/drivers/logger"
	"disbursement-service/internal/app/drivers/messaging"
	"disbursement-service/internal/app/drivers/storage"
	"disbursement-service/internal/app/services/core/disbursement"
	"disbursement-service/internal/app/services/core/reconciliation"
	"disbursement-service/internal/app/services/shared/archive"
	"disbursement-service/internal/app/services/shared/ledgerqueue"
	"disbursement-service/internal/app/services/shared/locker"
	redisrepo "disbursement-service/internal/app/services/shared/redis"

	"github.com/go-chi/chi/v5"
	"github.com/minio/minio-go/v7"
)

func main() {
	driverConfig := config.NewDriverConfig()
	internalConfig := config.NewInternalConfig()

	zapLogger := logger.NewZapLogger(driverConfig, internalConfig)

	location, err := time.LoadLocation(internalConfig.App.Timezone)
	if err != nil {
		log.Fatalf("Error loading location: %v", err)
	}
	time.Local = location

	postgresDB := database.NewPostgresDB(driverConfig)
	migration.Run(postgresDB)

	redisClient := database.NewRedisClient(driverConfig)
	rabbitConn := messaging.NewRabbitMQ(driverConfig)
	minioClient := storage.NewMinio(driverConfig)
	chiRouter := chi.NewRouter()

	bootstrap := config.Bootstrap{
		Router:         chiRouter,
		PostgresDB:     postgresDB,
		Redis:          redisClient,
		RabbitMQ:       rabbitConn,
		Logger:         zapLogger,
		DriverConfig:   driverConfig,
		InternalConfig: internalConfig,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bootstrapTheApp(ctx, &bootstrap, minioClient)

	server := &http.Server{
		Addr:    internalConfig.App.Port,
		Handler: chiRouter,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c

	log.Println("Waiting for pending requests to be processed..")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Second*time.Duration(internalConfig.App.ShutdownTimeout),
	)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	cancel()
	if err := bootstrap.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Error during shutdown: %v", err)
	}

	log.Println("Server exiting")
}

func bootstrapTheApp(ctx context.Context, bootstrap *config.Bootstrap, minioClient *minio.Client) {
	// Shared infrastructure
	redisRepository := redisrepo.NewRedisRepository(bootstrap.Redis)
	lockerService := locker.NewLockService(redisRepository, bootstrap.Logger)
	archiveStorage := archive.NewArchiveService(minioClient, bootstrap.DriverConfig, bootstrap.Logger)

	queueService, err := ledgerqueue.NewService(bootstrap.RabbitMQ, bootstrap.InternalConfig, bootstrap.Logger)
	if err != nil {
		log.Fatalf("Error setting up ledger queues: %v", err)
	}

	// Middlewares
	httpMiddlewares := &middlewares.Middlewares{
		Log:            bootstrap.Logger,
		InternalConfig: bootstrap.InternalConfig,
	}

	// Disbursement
	instructionRepository := disbursement.NewInstructionPostgresRepository(bootstrap.PostgresDB)
	disbursementUsecase := disbursement.NewDisbursementUsecase(
		instructionRepository,
		queueService,
		lockerService,
		bootstrap.InternalConfig,
		bootstrap.Logger,
	)
	disbursementController := controllers.NewDisbursementController(bootstrap.Logger, disbursementUsecase)

	// Reconciliation
	reconciliationUsecase := reconciliation.NewReconciliationUsecase(
		instructionRepository,
		queueService,
		archiveStorage,
		bootstrap.InternalConfig,
		bootstrap.Logger,
	)
	reconciliationController := controllers.NewReconciliationController(bootstrap.Logger, reconciliationUsecase)

	// Queue consumers
	disbursementWorker := disbursement.NewWorker(bootstrap.Logger, disbursementUsecase, queueService)
	workerStop, err := disbursementWorker.Start(ctx)
	if err != nil {
		log.Fatalf("Error starting disbursement worker: %v", err)
	}
	bootstrap.WorkerStop = workerStop

	// Scheduled reconciliation
	reconciliationWorker := reconciliation.NewWorker(bootstrap.Logger, bootstrap.InternalConfig, lockerService, reconciliationUsecase)
	bootstrap.ReconciliationStop = reconciliationWorker.Start(ctx)

	routers.SetupRoutes(bootstrap.Router, bootstrap.InternalConfig, httpMiddlewares, disbursementController, reconciliationController)
}
