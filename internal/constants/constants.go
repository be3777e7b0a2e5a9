package constants

const (
	// Session
	SessionCookieName = "field_report_session"
	ContextKeyUserID  = "user_id"
	ContextKeyActor   = "actor"
	ContextKeyTask    = "task"

	// Request tracing
	HeaderRequestID     = "X-Request-ID"
	ContextKeyRequestID = "request_id"

	// Onboarding
	HeaderOnboardingToken = "X-Onboarding-Token"

	// Pagination
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// Auth
	MinPasswordLength = 8

	// Project numbering
	DefaultProjectPrefix       = "02"
	DefaultProjectNumberFormat = "PREFIX-YYYY-NNNN"
	MaxProjectPrefixLength     = 10

	// Date-only values in requests and history notes
	DateLayout = "2006-01-02"
)
