package api

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeRateLimited    = "E_RATE_LIMITED"    // rate limit exceeded
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error
	CodeAccessDenied   = "E_ACCESS_DENIED"   // access denied

	// Sync errors
	CodeSyncNoCursor    = "E_SYNC_NO_CURSOR"     // no stored change cursor, a backfill must run first
	CodeSyncCursorLost  = "E_SYNC_CURSOR_LOST"   // the change feed did not yield a new cursor
	CodeSyncFailed      = "E_SYNC_FAILED"        // the sync pass failed outright
	CodeSyncJobNotFound = "E_SYNC_JOB_NOT_FOUND" // no job with the given id

	// Session errors
	CodeSessionInvalidOp = "E_SESSION_INVALID_OPERATION" // unknown session operation
	CodeSessionFailed    = "E_SESSION_OPERATION_FAILED"  // a session operation failed

	// Feedback errors
	CodeFeedbackFailed       = "E_FEEDBACK_OPERATION_FAILED" // a feedback operation failed
	CodeFeedbackExportFailed = "E_FEEDBACK_EXPORT_FAILED"    // the feedback CSV export failed

	// Metrics errors
	CodeMetricsFailed = "E_METRICS_FAILED" // the metrics aggregation failed

	// Interaction log errors
	CodeInteractionFailed       = "E_INTERACTION_OPERATION_FAILED" // an interaction log operation failed
	CodeInteractionExportFailed = "E_INTERACTION_EXPORT_FAILED"    // the interaction CSV export failed

	// Index errors
	CodeIndexNotConfigured = "E_INDEX_NOT_CONFIGURED" // no search index is configured
	CodeIndexSyncFailed    = "E_INDEX_SYNC_FAILED"    // an index sync operation failed
)
