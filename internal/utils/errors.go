package utils

import (
	"github.com/seltzinger/airsync/internal/types"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitUnknown = 1
	// Usage errors
	ExitUsage = 2
	// Device/transport errors
	ExitDevice = 3
	// Transfer errors
	ExitTransfer = 4
	// Configuration errors
	ExitConfig = 5
)

// Error codes (tool-owned, stable)
const (
	ErrCodeDeviceUnreachable   = "DEVICE_UNREACHABLE"
	ErrCodeDeviceStatus        = "DEVICE_STATUS"
	ErrCodeUploadRejected      = "UPLOAD_REJECTED"
	ErrCodeUploadUnsupported   = "UPLOAD_UNSUPPORTED"
	ErrCodeTransferInterrupted = "TRANSFER_INTERRUPTED"
	ErrCodeInvalidArgument     = "INVALID_ARGUMENT"
	ErrCodeInvalidParam        = "INVALID_PARAM"
	ErrCodeConfigInvalid       = "CONFIG_INVALID"
	ErrCodeMastercodeMissing   = "MASTERCODE_MISSING"
	ErrCodeJournalError        = "JOURNAL_ERROR"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeCancelled           = "CANCELLED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeUnknown             = "UNKNOWN"
)

// CLIErrorBuilder helps construct CLIError instances
type CLIErrorBuilder struct {
	err types.CLIError
}

// NewCLIError creates a new error builder
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{
		err: types.CLIError{
			Code:    code,
			Message: message,
		},
	}
}

func (b *CLIErrorBuilder) WithHTTPStatus(status int) *CLIErrorBuilder {
	b.err.HTTPStatus = status
	return b
}

func (b *CLIErrorBuilder) WithDeviceDetail(detail string) *CLIErrorBuilder {
	b.err.DeviceDetail = detail
	return b
}

func (b *CLIErrorBuilder) WithRetryable(retryable bool) *CLIErrorBuilder {
	b.err.Retryable = retryable
	return b
}

func (b *CLIErrorBuilder) WithContext(key string, value interface{}) *CLIErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]interface{})
	}
	b.err.Context[key] = value
	return b
}

func (b *CLIErrorBuilder) Build() types.CLIError {
	return b.err
}

// GetExitCode returns the exit code for an error code
func GetExitCode(errorCode string) int {
	mapping := map[string]int{
		ErrCodeDeviceUnreachable:   ExitDevice,
		ErrCodeDeviceStatus:        ExitDevice,
		ErrCodeUploadRejected:      ExitTransfer,
		ErrCodeUploadUnsupported:   ExitDevice,
		ErrCodeTransferInterrupted: ExitTransfer,
		ErrCodeInvalidArgument:     ExitUsage,
		ErrCodeInvalidParam:        ExitUsage,
		ErrCodeConfigInvalid:       ExitConfig,
		ErrCodeMastercodeMissing:   ExitConfig,
		ErrCodeJournalError:        ExitUnknown,
		ErrCodeTimeout:             ExitDevice,
		ErrCodeCancelled:           ExitUnknown,
		ErrCodeInternalError:       ExitUnknown,
		ErrCodeUnknown:             ExitUnknown,
	}
	if code, ok := mapping[errorCode]; ok {
		return code
	}
	return ExitUnknown
}
