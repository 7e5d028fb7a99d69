package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Default pagination
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// HTTP Headers
	HeaderContentType    = "Content-Type"
	HeaderAuthorization  = "Authorization"
	HeaderXRequestID     = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderAccountID      = "X-Account-ID"
	HeaderAccountPlan    = "X-Account-Plan"
	HeaderInternalToken  = "X-Internal-Token"

	// Content Types
	ContentTypeJSON = "application/json"

	// Context keys
	ContextKeyAccountID = "account_id"
	ContextKeyPlan      = "plan"
	ContextKeyRequestID = "request_id"

	// Database table names
	TableJobs               = "jobs"
	TableUsageCounters      = "usage_counters"
	TableIdempotencyRecords = "idempotency_records"
	TableAudioAssets        = "audio_assets"
	TableArtifacts          = "artifacts"
	TableDispatchOutbox     = "dispatch_outbox"

	// Error messages
	ErrMsgInternalServerError = "Internal server error occurred"
	ErrMsgResourceNotFound    = "Resource not found"
	ErrMsgValidationFailed    = "Validation failed"
	ErrMsgConflict            = "Resource already exists"
)
