package constvars

const (
	ErrClientSomethingWrongWithApplication = "Something went wrong with the application, please try again later"
	ErrClientCannotProcessRequest          = "Cannot process the request, please check your input"
	ErrClientServerLongRespond             = "Server takes too long to respond"
	ErrClientInstructionNotFound           = "Payment instruction not found"
	ErrClientCaseTypeNotSupported          = "Case type is not supported"
	ErrClientReconciliationFailed          = "Reconciliation run failed"
)

const (
	ResponseSuccess                   = "Request processed successfully"
	ResponseInstructionCreated        = "Payment instruction created and dispatched"
	ResponseInstructionExists         = "Decision already has a payment instruction"
	ResponseInstructionPendingResweep = "Payment instruction persisted, dispatch pending"
	ResponseLineConflict              = "Decision reuses line ids held by another instruction"
	ResponseNoPriorInstruction        = "Termination requires a previously booked instruction"
	ResponseReceiptApplied            = "Receipt applied"
	ResponseResweepComplete           = "Resweep complete"
	ResponseReconciliationComplete    = "Reconciliation run complete"
)

const (
	ErrDevValidationFailed        = "VALIDATION_FAILED"
	ErrDevCannotParseJSON         = "CANNOT_PARSE_JSON"
	ErrDevCannotMarshalJSON       = "CANNOT_MARSHAL_JSON"
	ErrDevServerDeadlineExceeded  = "SERVER_DEADLINE_EXCEEDED"
	ErrDevMissingRequestID        = "MISSING_REQUEST_ID"
	ErrDevInvalidAPIKey           = "INVALID_API_KEY"
	ErrDevAPIKeyRequired          = "API_KEY_REQUIRED"
	ErrDevPostgresFindData        = "POSTGRES_FIND_DATA_FAILED"
	ErrDevPostgresInsertData      = "POSTGRES_INSERT_DATA_FAILED"
	ErrDevPostgresUpdateData      = "POSTGRES_UPDATE_DATA_FAILED"
	ErrDevPostgresTxBegin         = "POSTGRES_TX_BEGIN_FAILED"
	ErrDevPostgresTxCommit        = "POSTGRES_TX_COMMIT_FAILED"
	ErrDevRedisSet                = "REDIS_SET_FAILED"
	ErrDevRedisGet                = "REDIS_GET_FAILED"
	ErrDevRedisDelete             = "REDIS_DELETE_FAILED"
	ErrDevRedisUnlock             = "REDIS_UNLOCK_FAILED"
	ErrDevQueuePublish            = "QUEUE_PUBLISH_FAILED"
	ErrDevQueueConfirm            = "QUEUE_PUBLISH_NOT_CONFIRMED"
	ErrDevWireMarshal             = "WIRE_PAYLOAD_MARSHAL_FAILED"
	ErrDevWireUnmarshal           = "WIRE_PAYLOAD_UNMARSHAL_FAILED"
	ErrDevUnknownCaseType         = "UNKNOWN_CASE_TYPE"
	ErrDevTerminationWithoutPrior = "TERMINATION_WITHOUT_PRIOR_INSTRUCTION"
	ErrDevInstructionNotFound     = "INSTRUCTION_NOT_FOUND"
	ErrDevReconciliationRun       = "RECONCILIATION_RUN_FAILED"
	ErrDevArchiveUpload           = "ARCHIVE_UPLOAD_FAILED"
)
