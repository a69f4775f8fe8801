package config

import (
	"disbursement-service/internal/pkg/utils"

	"github.com/joho/godotenv"
)

func init() {
	godotenv.Load()
}

func NewDriverConfig() *DriverConfig {
	return &DriverConfig{
		PostgresDB: PostgresDB{
			Port:     utils.GetEnvString("POSTGRES_PORT", "5432"),
			Host:     utils.GetEnvString("POSTGRES_HOST", "localhost"),
			DBName:   utils.GetEnvString("POSTGRES_DB_NAME", "disbursement"),
			Username: utils.GetEnvString("POSTGRES_USERNAME", "defaultUsername"),
			Password: utils.GetEnvString("POSTGRES_PASSWORD", "defaultPassword"),
		},
		Redis: Redis{
			Host:     utils.GetEnvString("REDIS_HOST", "localhost"),
			Port:     utils.GetEnvString("REDIS_PORT", "6379"),
			Password: utils.GetEnvString("REDIS_PASSWORD", ""),
		},
		RabbitMQ: RabbitMQ{
			Port:     utils.GetEnvString("RABBITMQ_PORT", "5672"),
			Host:     utils.GetEnvString("RABBITMQ_HOST", "localhost"),
			Username: utils.GetEnvString("RABBITMQ_USERNAME", "defaultUsername"),
			Password: utils.GetEnvString("RABBITMQ_PASSWORD", "defaultPassword"),
		},
		Minio: Minio{
			Port:       utils.GetEnvString("MINIO_PORT", "9000"),
			Host:       utils.GetEnvString("MINIO_HOST", "localhost"),
			Username:   utils.GetEnvString("MINIO_USERNAME", "defaultUsername"),
			Password:   utils.GetEnvString("MINIO_PASSWORD", "defaultPassword"),
			BucketName: utils.GetEnvString("MINIO_BUCKET_NAME", "reconciliation-runs"),
			UseSSL:     utils.GetEnvBool("MINIO_USE_SSL", false),
		},
		Logger: Logger{
			Level:               utils.GetEnvString("LOGGER_LEVEL", "debug"),
			OutputFileName:      utils.GetEnvString("LOGGER_OUTPUT_FILENAME", "logger.log"),
			OutputErrorFileName: utils.GetEnvString("LOGGER_OUTPUT_ERROR_FILENAME", "logger_error.log"),
		},
	}
}

func NewInternalConfig() *InternalConfig {
	return &InternalConfig{
		App: App{
			Env:             utils.GetEnvString("APP_ENV", "development"),
			Port:            utils.GetEnvString("APP_PORT", ":8080"),
			Version:         utils.GetEnvString("APP_VERSION", "v1"),
			Timezone:        utils.GetEnvString("APP_TIMEZONE", "Europe/Oslo"),
			EndpointPrefix:  utils.GetEnvString("APP_ENDPOINT_PREFIX", "api"),
			MaxRequests:     utils.GetEnvInt("APP_MAX_REQUEST", 10),
			ShutdownTimeout: utils.GetEnvInt("APP_SHUTDOWN_TIMEOUT", 10),
			APIKey:          utils.GetEnvString("APP_API_KEY", ""),
		},
		Queue: Queue{
			DecisionReadyQueue:     utils.GetEnvString("APP_RABBITMQ_DECISION_READY_QUEUE", "decision_ready_queue"),
			LedgerReceiptQueue:     utils.GetEnvString("APP_RABBITMQ_LEDGER_RECEIPT_QUEUE", "ledger_receipt_queue"),
			DisbursementOutQueue:   utils.GetEnvString("APP_RABBITMQ_DISBURSEMENT_OUT_QUEUE", "disbursement_out_queue"),
			ReconciliationOutQueue: utils.GetEnvString("APP_RABBITMQ_RECONCILIATION_OUT_QUEUE", "reconciliation_out_queue"),
			Prefetch:               utils.GetEnvInt("APP_RABBITMQ_PREFETCH", 1),
		},
		Disbursement: Disbursement{
			CaseLockTTLInSeconds:        utils.GetEnvInt("APP_CASE_LOCK_TTL_IN_SECONDS", 30),
			InstructionLockTTLInSeconds: utils.GetEnvInt("APP_INSTRUCTION_LOCK_TTL_IN_SECONDS", 15),
			DispatchRatePerSecond:       utils.GetEnvInt("APP_DISPATCH_RATE_PER_SECOND", 20),
			DispatchBurst:               utils.GetEnvInt("APP_DISPATCH_BURST", 5),
		},
		Reconciliation: Reconciliation{
			ChunkSize:               utils.GetEnvInt("APP_RECONCILIATION_CHUNK_SIZE", 70),
			CasesPerFrame:           utils.GetEnvInt("APP_RECONCILIATION_CASES_PER_FRAME", 50),
			WorkerIntervalInMinutes: utils.GetEnvInt("APP_RECONCILIATION_WORKER_INTERVAL_IN_MINUTES", 60),
			LeaderLockTTLInSeconds:  utils.GetEnvInt("APP_RECONCILIATION_LEADER_LOCK_TTL_IN_SECONDS", 300),
		},
	}
}
