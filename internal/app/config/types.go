package config

type (
	DriverConfig struct {
		PostgresDB PostgresDB
		Redis      Redis
		RabbitMQ   RabbitMQ
		Minio      Minio
		Logger     Logger
	}

	PostgresDB struct {
		Port     string
		Host     string
		DBName   string
		Username string
		Password string
	}
	Redis struct {
		Host     string
		Port     string
		Password string
	}
	RabbitMQ struct {
		Port     string
		Host     string
		Username string
		Password string
	}
	Minio struct {
		Port       string
		Host       string
		Username   string
		Password   string
		BucketName string
		UseSSL     bool
	}
	Logger struct {
		Level               string
		OutputFileName      string
		OutputErrorFileName string
	}
)

type (
	InternalConfig struct {
		App            App
		Queue          Queue
		Disbursement   Disbursement
		Reconciliation Reconciliation
	}

	App struct {
		Env             string
		Port            string
		Version         string
		Timezone        string
		EndpointPrefix  string
		MaxRequests     int
		ShutdownTimeout int
		APIKey          string
	}

	Queue struct {
		DecisionReadyQueue     string
		LedgerReceiptQueue     string
		DisbursementOutQueue   string
		ReconciliationOutQueue string
		Prefetch               int
	}

	Disbursement struct {
		CaseLockTTLInSeconds        int
		InstructionLockTTLInSeconds int
		DispatchRatePerSecond       int
		DispatchBurst               int
	}

	Reconciliation struct {
		ChunkSize               int
		CasesPerFrame           int
		WorkerIntervalInMinutes int
		LeaderLockTTLInSeconds  int
	}
)
