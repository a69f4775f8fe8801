package constvars

const (
	LoggingRequestIDKey     = "request_id"
	LoggingCorrelationIDKey = "correlation_id"
	LoggingMethodKey        = "method"
	LoggingEndpointKey      = "endpoint"
	LoggingRemoteAddrKey    = "remote_addr"
	LoggingUserAgentKey     = "user_agent"
	LoggingQueryKey         = "query"
	LoggingStatusCodeKey    = "status_code"
	LoggingDurationKey      = "duration"
	LoggingSuccessKey       = "success"
	LoggingErrorTypeKey     = "error_type"
	LoggingRequestKey       = "request"

	LoggingCaseIDKey        = "case_id"
	LoggingCaseTypeKey      = "case_type"
	LoggingDecisionIDKey    = "decision_id"
	LoggingInstructionIDKey = "instruction_id"
	LoggingLineIDKey        = "line_id"
	LoggingStatusKey        = "status"
	LoggingSeverityKey      = "severity"
	LoggingOutcomeKey       = "outcome"
	LoggingQueueKey         = "queue"
	LoggingFrameCountKey    = "frame_count"
	LoggingDetailCountKey   = "detail_count"

	LoggingRedisKey              = "redis_key"
	LoggingLockValueKey          = "lock_value"
	LoggingLockExpirationTimeKey = "lock_expiration_time"
	LoggingLockStoredValueKey    = "lock_stored_value"
	LoggingLockExpectedValueKey  = "lock_expected_value"
)
