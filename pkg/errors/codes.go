package errors

// Error categories.
const (
	// Configuration errors (CON)
	ConfigurationCategory = "CON"

	// Provider errors (PRV)
	ProviderCategory = "PRV"

	// Registry errors (REG)
	RegistryCategory = "REG"

	// Test lifecycle errors (TST)
	TestCategory = "TST"

	// Webhook errors (WEB)
	WebhookCategory = "WEB"
)

// Configuration error codes.
const (
	ErrInvalidConfig Code = "CON001" // Invalid configuration
	ErrMissingConfig Code = "CON002" // Missing required configuration
)

// Provider error codes.
const (
	ErrProviderRejected    Code = "PRV001" // Provider rejected the send synchronously
	ErrProviderTransport   Code = "PRV002" // Transport error reaching the provider
	ErrProviderUnavailable Code = "PRV003" // Provider unavailable
)

// Registry error codes.
const (
	ErrDuplicateTest Code = "REG001" // Correlation key already registered
	ErrTestNotFound  Code = "REG002" // No record for correlation key
)

// Test lifecycle error codes.
const (
	ErrTestTimeout  Code = "TST001" // No final webhook before the wait timeout
	ErrSendFailed   Code = "TST002" // Send-time failure, no webhook expected
	ErrTestFailed   Code = "TST003" // Provider reported a failed delivery
	ErrBatchUnknown Code = "TST004" // Batch identifier not known
)

// Webhook error codes.
const (
	ErrEventMalformed Code = "WEB001" // Webhook event could not be interpreted
)

// ErrorInfo contains metadata about error codes.
type ErrorInfo struct {
	Code        Code   `json:"code"`
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Retryable   bool   `json:"retryable"`
}

var errorInfoMap = map[Code]ErrorInfo{
	ErrInvalidConfig: {ErrInvalidConfig, ConfigurationCategory, "ERROR", "Invalid configuration provided", false},
	ErrMissingConfig: {ErrMissingConfig, ConfigurationCategory, "ERROR", "Required configuration missing", false},

	ErrProviderRejected:    {ErrProviderRejected, ProviderCategory, "ERROR", "Provider rejected the send synchronously", false},
	ErrProviderTransport:   {ErrProviderTransport, ProviderCategory, "ERROR", "Transport error reaching the provider", true},
	ErrProviderUnavailable: {ErrProviderUnavailable, ProviderCategory, "ERROR", "Provider unavailable", true},

	ErrDuplicateTest: {ErrDuplicateTest, RegistryCategory, "ERROR", "Correlation key already registered", false},
	ErrTestNotFound:  {ErrTestNotFound, RegistryCategory, "WARN", "No record for correlation key", false},

	ErrTestTimeout:  {ErrTestTimeout, TestCategory, "WARN", "No final webhook before the wait timeout", true},
	ErrSendFailed:   {ErrSendFailed, TestCategory, "ERROR", "Send-time failure, no webhook expected", false},
	ErrTestFailed:   {ErrTestFailed, TestCategory, "ERROR", "Provider reported a failed delivery", false},
	ErrBatchUnknown: {ErrBatchUnknown, TestCategory, "INFO", "Batch identifier not known", false},

	ErrEventMalformed: {ErrEventMalformed, WebhookCategory, "WARN", "Webhook event could not be interpreted", false},
}

// GetErrorInfo returns metadata for a given error code.
func GetErrorInfo(code Code) ErrorInfo {
	if info, exists := errorInfoMap[code]; exists {
		return info
	}
	return ErrorInfo{
		Code:        code,
		Category:    "UNKNOWN",
		Severity:    "ERROR",
		Description: "Unknown error code",
		Retryable:   false,
	}
}

// IsRetryable checks if an error code is retryable.
func IsRetryable(code Code) bool {
	return GetErrorInfo(code).Retryable
}

// GetCategory returns the category for an error code.
func GetCategory(code Code) string {
	return GetErrorInfo(code).Category
}
